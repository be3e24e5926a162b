package report

import (
	"slices"
	"strings"
	"time"

	"github.com/farmstore/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SalesSummary provides aggregated sales statistics for one window.
// It is derived on every query and never persisted.
type SalesSummary struct {
	Window           Window          `json:"window"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	TotalOrders      int64           `json:"total_orders"`
	TotalSalesAmount decimal.Decimal `json:"total_sales_amount"`
	AvgOrderValue    decimal.Decimal `json:"avg_order_value"`
	ItemsSold        decimal.Decimal `json:"items_sold"`
}

// ProductSalesRanking is one entry of the top products list
type ProductSalesRanking struct {
	Rank          int             `json:"rank"`
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// DailySalesTrend is the revenue of one calendar day
type DailySalesTrend struct {
	Date        time.Time       `json:"date"`
	OrderCount  int64           `json:"order_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Summarize aggregates the orders that fall inside w at now
func Summarize(w Window, now time.Time, orders []order.Order) SalesSummary {
	start, end := w.Bounds(now)
	s := SalesSummary{
		Window:           w,
		PeriodStart:      start,
		PeriodEnd:        end,
		TotalSalesAmount: decimal.Zero,
		AvgOrderValue:    decimal.Zero,
		ItemsSold:        decimal.Zero,
	}
	for i := range orders {
		o := &orders[i]
		if o.CreatedAt.Before(start) || !o.CreatedAt.Before(end) {
			continue
		}
		s.TotalOrders++
		s.TotalSalesAmount = s.TotalSalesAmount.Add(o.LinesTotal())
		s.ItemsSold = s.ItemsSold.Add(o.ItemsSold())
	}
	if s.TotalOrders > 0 {
		s.AvgOrderValue = s.TotalSalesAmount.DivRound(decimal.NewFromInt(s.TotalOrders), 0)
	}
	return s
}

// RankProducts totals lines per product and ranks them like RankSales. Lines
// are expected oldest first so a product keeps the name of its most recent line.
func RankProducts(lines []order.OrderLine, limit int) []ProductSalesRanking {
	var sales []order.ProductSales
	index := make(map[uuid.UUID]int)
	for _, l := range lines {
		i, ok := index[l.ProductID]
		if !ok {
			i = len(sales)
			index[l.ProductID] = i
			sales = append(sales, order.ProductSales{
				ProductID: l.ProductID,
				Quantity:  decimal.Zero,
				Amount:    decimal.Zero,
			})
		}
		sales[i].ProductName = l.ProductName
		sales[i].Quantity = sales[i].Quantity.Add(l.Quantity)
		sales[i].Amount = sales[i].Amount.Add(l.LineTotal)
	}
	return RankSales(sales, limit)
}

// RankSales ranks per-product totals by revenue, then quantity, both
// descending, then by name in French collation order. limit <= 0 returns all.
func RankSales(sales []order.ProductSales, limit int) []ProductSalesRanking {
	ranking := make([]ProductSalesRanking, len(sales))
	for i, s := range sales {
		ranking[i] = ProductSalesRanking{
			ProductID:     s.ProductID,
			ProductName:   s.ProductName,
			TotalQuantity: s.Quantity,
			TotalAmount:   s.Amount,
		}
	}

	col := collate.New(language.French, collate.IgnoreCase)
	slices.SortFunc(ranking, func(a, b ProductSalesRanking) int {
		if c := b.TotalAmount.Cmp(a.TotalAmount); c != 0 {
			return c
		}
		if c := b.TotalQuantity.Cmp(a.TotalQuantity); c != 0 {
			return c
		}
		if c := col.CompareString(a.ProductName, b.ProductName); c != 0 {
			return c
		}
		return strings.Compare(a.ProductID.String(), b.ProductID.String())
	})

	if limit > 0 && len(ranking) > limit {
		ranking = ranking[:limit]
	}
	for i := range ranking {
		ranking[i].Rank = i + 1
	}
	return ranking
}

// RecentOrders returns up to limit orders, newest first. The input is not modified.
func RecentOrders(orders []order.Order, limit int) []order.Order {
	sorted := slices.Clone(orders)
	slices.SortStableFunc(sorted, func(a, b order.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// DailyTrend returns one entry per day for the days ending today, oldest first
func DailyTrend(now time.Time, days int, orders []order.Order) []DailySalesTrend {
	if days <= 0 {
		return nil
	}
	y, m, d := now.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))

	trend := make([]DailySalesTrend, days)
	for i := range trend {
		trend[i] = DailySalesTrend{Date: first.AddDate(0, 0, i), TotalAmount: decimal.Zero}
	}
	for i := range orders {
		o := &orders[i]
		created := o.CreatedAt.In(now.Location())
		cy, cm, cd := created.Date()
		day := time.Date(cy, cm, cd, 0, 0, 0, 0, now.Location())
		idx := int(day.Sub(first).Hours()/24 + 0.5)
		if day.Before(first) || idx < 0 || idx >= days {
			continue
		}
		trend[idx].OrderCount++
		trend[idx].TotalAmount = trend[idx].TotalAmount.Add(o.LinesTotal())
	}
	return trend
}
