package product

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/logbook"
	"ShopifyWithOdoo/internal/database/model/mapping"
	"ShopifyWithOdoo/pkg/logging"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
)

const (
	COLUMN_TEMPLATE_NAME        = "template_name"
	COLUMN_PRODUCT_NAME         = "product_name"
	COLUMN_DEFAULT_CODE         = "product_default_code"
	COLUMN_SHOPIFY_DEFAULT_CODE = "shopify_product_default_code"
	COLUMN_DESCRIPTION          = "product_description"
	COLUMN_TEMPLATE_ID          = "PRODUCT_TEMPLATE_ID"
	COLUMN_PRODUCT_ID           = "PRODUCT_ID"
	COLUMN_CATEGORY_ID          = "CATEGORY_ID"
)

var csvHeader = []string{
	COLUMN_TEMPLATE_NAME,
	COLUMN_PRODUCT_NAME,
	COLUMN_DEFAULT_CODE,
	COLUMN_SHOPIFY_DEFAULT_CODE,
	COLUMN_DESCRIPTION,
	COLUMN_TEMPLATE_ID,
	COLUMN_PRODUCT_ID,
	COLUMN_CATEGORY_ID,
}

var ErrNothingToExport = errors.New("No data found to be exported.")
var ErrMissingColumn = errors.New("Required column is not available in File.")

// ExportCSV writes the ERP products carrying an internal reference in the
// layout ImportCSV reads back.
func ExportCSV(ctx context.Context, c *connector.Connector, w io.Writer) (int, error) {
	logger := logging.GetLogger()
	logger.Info("Start ExportCSV")
	defer logger.Info("End ExportCSV")

	products, err := c.ERP.ExportableProducts(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed in ExportableProducts")
	}
	writer := csv.NewWriter(w)
	var rows int
	for _, p := range products {
		if p.DefaultCode == "" {
			continue
		}
		if rows == 0 {
			if err := writer.Write(csvHeader); err != nil {
				return 0, errors.Wrap(err, "failed to write csv header")
			}
		}
		err := writer.Write([]string{
			p.TemplateName,
			p.Name,
			p.DefaultCode,
			p.DefaultCode,
			p.Description,
			strconv.Itoa(p.TemplateID),
			strconv.Itoa(p.ID),
			strconv.Itoa(p.CategoryID),
		})
		if err != nil {
			return rows, errors.Wrap(err, "failed to write csv row")
		}
		rows++
	}
	if rows == 0 {
		return 0, ErrNothingToExport
	}
	writer.Flush()
	return rows, errors.Wrap(writer.Error(), "failed to flush csv")
}

// ExportCSVFile writes the export into EXPORT.Path and returns the file name.
func ExportCSVFile(ctx context.Context, c *connector.Connector) (string, error) {
	dir := c.Config.EXPORT.Path
	if err := os.MkdirAll(dir, 0770); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", dir)
	}
	name := filepath.Join(dir, fmt.Sprintf("%s_products_%s.csv", c.Name, database.Now().Format("20060102150405")))
	f, err := os.Create(name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", name)
	}
	defer f.Close()
	if _, err := ExportCSV(ctx, c, f); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

type csvRow struct {
	Line        int
	Template    string
	Name        string
	DefaultCode string
	Description string
	TemplateID  int
	ProductID   int
	CategoryID  int
}

func (r csvRow) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TemplateID, validation.Required),
		validation.Field(&r.ProductID, validation.Required),
		validation.Field(&r.CategoryID, validation.Required),
	)
}

// ImportCSV reads a product file and prepares the rows as unexported variants.
// Rows without ERP ids are reported to the returned log book.
func ImportCSV(ctx context.Context, c *connector.Connector, r io.Reader) (*logbook.LogBook, int, error) {
	logger := logging.GetLogger()
	logger.Info("Start ImportCSV")
	defer logger.Info("End ImportCSV")

	buffered := bufio.NewReader(r)
	if bom, _ := buffered.Peek(3); len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = buffered.Discard(3)
	}
	reader := csv.NewReader(buffered)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to read csv header")
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, name := range csvHeader {
		if _, ok := columns[name]; !ok {
			return nil, 0, ErrMissingColumn
		}
	}

	book, err := c.NewLogBook(logbook.TYPE_IMPORT, logbook.MODEL_PRODUCT)
	if err != nil {
		return nil, 0, err
	}
	var imported int
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return book, imported, errors.Wrapf(err, "failed to read csv line %d", line)
		}
		get := func(name string) string {
			i := columns[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		atoi := func(name string) int {
			v, _ := strconv.Atoi(get(name))
			return v
		}
		row := csvRow{
			Line:        line,
			Template:    get(COLUMN_TEMPLATE_NAME),
			Name:        get(COLUMN_PRODUCT_NAME),
			DefaultCode: get(COLUMN_SHOPIFY_DEFAULT_CODE),
			Description: get(COLUMN_DESCRIPTION),
			TemplateID:  atoi(COLUMN_TEMPLATE_ID),
			ProductID:   atoi(COLUMN_PRODUCT_ID),
			CategoryID:  atoi(COLUMN_CATEGORY_ID),
		}
		if row.DefaultCode == "" {
			row.DefaultCode = get(COLUMN_DEFAULT_CODE)
		}
		if err := row.Validate(); err != nil {
			if err := book.Add(c.DB, logbook.Entry{
				Message:     fmt.Sprintf("Line %d skipped, %v", line, err),
				DefaultCode: row.DefaultCode,
			}); err != nil {
				return book, imported, err
			}
			continue
		}
		if err := saveRow(c, row); err != nil {
			return book, imported, err
		}
		imported++
	}
	deleted, err := book.DeleteIfEmpty(c.DB)
	if err != nil || deleted {
		return nil, imported, err
	}
	return book, imported, nil
}

func saveRow(c *connector.Connector, row csvRow) error {
	v, err := mapping.FindVariantByErpProduct(c.DB, c.Name, row.ProductID)
	if err != nil {
		return err
	}
	if v == nil {
		v = &mapping.Variant{Instance: c.Name}
	}
	v.TemplateName = row.Template
	v.Title = row.Name
	v.DefaultCode = row.DefaultCode
	v.Description = row.Description
	v.ErpTemplateID = row.TemplateID
	v.ErpProductID = row.ProductID
	v.ErpCategoryID = row.CategoryID
	return v.Save(c.DB)
}
