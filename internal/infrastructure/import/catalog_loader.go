package csvimport

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
)

// Catalog file columns. id and category are optional.
const (
	ColumnID        = "id"
	ColumnCode      = "code"
	ColumnName      = "name"
	ColumnCategory  = "category"
	ColumnUnit      = "unit"
	ColumnPrice     = "price"
	ColumnAvailable = "available"
)

var requiredColumns = []string{ColumnCode, ColumnName, ColumnUnit, ColumnPrice, ColumnAvailable}

// LoadCatalogFile reads a product catalog CSV from fsys
func LoadCatalogFile(fsys afero.Fs, path string, opts ...ParserOption) ([]catalog.Product, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f, opts...)
}

// LoadCatalog parses a product catalog CSV. The whole file is rejected when any
// line is invalid; the returned *ValidationError lists the offending lines.
func LoadCatalog(r io.Reader, opts ...ParserOption) ([]catalog.Product, error) {
	p, err := NewCSVParser(r, opts...)
	if err != nil {
		return nil, err
	}
	if missing := p.MissingHeaders(requiredColumns...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrMissingHeader, strings.Join(missing, ", "))
	}

	errs := NewErrorCollection(50)
	seenCodes := make(map[string]int)
	seenIDs := make(map[uuid.UUID]int)
	var products []catalog.Product

	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			break
		}
		var rowErr RowError
		if errors.As(err, &rowErr) {
			errs.Add(rowErr)
			continue
		}
		if err != nil {
			return nil, err
		}
		if row.IsEmpty() {
			continue
		}

		product, ok := productFromRow(row, errs)
		if !ok {
			continue
		}
		if first, dup := seenCodes[product.Code]; dup {
			errs.Add(NewRowError(row.Line, ColumnCode, ErrCodeDuplicate, fmt.Sprintf("code already used on row %d", first)))
			continue
		}
		if first, dup := seenIDs[product.ID]; dup {
			errs.Add(NewRowError(row.Line, ColumnID, ErrCodeDuplicate, fmt.Sprintf("id already used on row %d", first)))
			continue
		}
		seenCodes[product.Code] = row.Line
		seenIDs[product.ID] = row.Line
		products = append(products, *product)
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoDataRows
	}
	return products, nil
}

func productFromRow(row *Row, errs *ErrorCollection) (*catalog.Product, bool) {
	before := errs.TotalCount()
	for _, col := range requiredColumns {
		if row.Get(col) == "" {
			errs.AddRequired(row.Line, col)
		}
	}
	price := parseDecimal(row, ColumnPrice, errs)
	available := parseDecimal(row, ColumnAvailable, errs)

	var id uuid.UUID
	if raw := row.Get(ColumnID); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			e := NewRowError(row.Line, ColumnID, ErrCodeInvalidProduct, "expected a UUID")
			e.Value = raw
			errs.Add(e)
		}
		id = parsed
	}
	if errs.TotalCount() > before {
		return nil, false
	}

	product, err := catalog.NewProduct(row.Get(ColumnCode), row.Get(ColumnName), row.Get(ColumnCategory),
		row.Get(ColumnUnit), price, available)
	if err != nil {
		msg := err.Error()
		var de *shared.DomainError
		if errors.As(err, &de) {
			msg = de.Message
		}
		errs.Add(NewRowError(row.Line, "", ErrCodeInvalidProduct, msg))
		return nil, false
	}
	if id == uuid.Nil {
		id = catalog.IDFromCode(product.Code)
	}
	product.ID = id
	return product, true
}

func parseDecimal(row *Row, column string, errs *ErrorCollection) decimal.Decimal {
	raw := row.Get(column)
	if raw == "" {
		return decimal.Zero
	}
	// decimal comma, as typed in French-locale spreadsheets
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.ReplaceAll(raw, " ", ""), ",", "."))
	if err != nil {
		errs.AddInvalidNumber(row.Line, column, raw)
		return decimal.Zero
	}
	return d
}
