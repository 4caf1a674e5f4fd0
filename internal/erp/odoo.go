package erp

import (
	"context"
	"strings"

	"ShopifyWithOdoo/internal/odooapi"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/pkg/errors"
)

// Odoo implements ERP over the JSON-RPC client.
type Odoo struct {
	client *odooapi.Client
}

var _ ERP = (*Odoo)(nil)

func NewOdoo(client *odooapi.Client) *Odoo {
	return &Odoo{client: client}
}

func ids(list []int) []any {
	result := make([]any, len(list))
	for i, id := range list {
		result[i] = id
	}
	return result
}

// likeEscaper makes a value match itself in an Odoo like/ilike domain.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (o *Odoo) FindPartnerByEmail(ctx context.Context, email string) (int, error) {
	if email == "" {
		return 0, nil
	}
	id, err := o.client.SearchFirstId(ctx, "res.partner", []any{
		[]any{"email", "=ilike", likeEscaper.Replace(email)},
		[]any{"parent_id", "=", false},
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to search partner by email %s", email)
	}
	return id, nil
}

func (o *Odoo) partnerValues(ctx context.Context, p *Partner) (map[string]any, error) {
	values := map[string]any{
		"name":    p.Name,
		"email":   p.Email,
		"phone":   p.Phone,
		"street":  p.Street,
		"street2": p.Street2,
		"city":    p.City,
		"zip":     p.Zip,
		"type":    p.Type,
	}
	if p.Type == "" {
		values["type"] = PARTNER_CONTACT
	}
	if p.ParentID != 0 {
		values["parent_id"] = p.ParentID
	}
	countryID, stateID, err := o.resolveCountryState(ctx, p)
	if err != nil {
		return nil, err
	}
	if countryID != 0 {
		values["country_id"] = countryID
	}
	if stateID != 0 {
		values["state_id"] = stateID
	}
	return values, nil
}

func (o *Odoo) CreatePartner(ctx context.Context, p *Partner) (int, error) {
	logger := logging.GetLogger()
	values, err := o.partnerValues(ctx, p)
	if err != nil {
		return 0, err
	}
	id, err := o.client.Create(ctx, "res.partner", values, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to create partner %s", p.Name)
	}
	logger.Debugf("Partner %s created, id=%d", p.Name, id)
	return id, nil
}

// FindOrCreateAddress looks for a child address of p.ParentID with the same
// type, name and street lines before creating one.
func (o *Odoo) FindOrCreateAddress(ctx context.Context, p *Partner) (int, error) {
	domain := []any{
		[]any{"parent_id", "=", p.ParentID},
		[]any{"type", "=", p.Type},
		[]any{"name", "=ilike", p.Name},
		[]any{"street", "=", orFalse(p.Street)},
		[]any{"street2", "=", orFalse(p.Street2)},
		[]any{"zip", "=", orFalse(p.Zip)},
		[]any{"city", "=", orFalse(p.City)},
	}
	id, err := o.client.SearchFirstId(ctx, "res.partner", domain)
	if err != nil {
		return 0, errors.Wrap(err, "failed to search address")
	}
	if id != 0 {
		return id, nil
	}
	return o.CreatePartner(ctx, p)
}

// orFalse maps empty strings to the ORM's false.
func orFalse(s string) any {
	if s == "" {
		return false
	}
	return s
}

type productRecord struct {
	ID              int              `json:"id"`
	TemplateID      odooapi.Many2One `json:"product_tmpl_id"`
	Name            odooapi.String   `json:"name"`
	DefaultCode     odooapi.String   `json:"default_code"`
	Barcode         odooapi.String   `json:"barcode"`
	DescriptionSale odooapi.String   `json:"description_sale"`
	CategoryID      odooapi.Many2One `json:"categ_id"`
	Type            odooapi.String   `json:"type"`
	ListPrice       odooapi.Decimal  `json:"lst_price"`
}

var productFields = []string{"id", "product_tmpl_id", "name", "default_code", "barcode", "description_sale", "categ_id", "type", "lst_price"}

func (r *productRecord) toProduct() *Product {
	return &Product{
		ID:           r.ID,
		TemplateID:   r.TemplateID.ID,
		TemplateName: r.TemplateID.Name,
		Name:         string(r.Name),
		DefaultCode:  string(r.DefaultCode),
		Barcode:      string(r.Barcode),
		Description:  string(r.DescriptionSale),
		CategoryID:   r.CategoryID.ID,
		Type:         string(r.Type),
		ListPrice:    r.ListPrice.Decimal,
	}
}

func (o *Odoo) searchProducts(ctx context.Context, domain []any, limit int) ([]*Product, error) {
	var records []productRecord
	if err := o.client.SearchReadInto(ctx, "product.product", domain, productFields, limit, "product_tmpl_id,id", &records); err != nil {
		return nil, errors.Wrap(err, "failed to search product.product")
	}
	products := make([]*Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].toProduct())
	}
	return products, nil
}

// FindProduct returns the product whose field (default_code or barcode) equals value, nil when none.
func (o *Odoo) FindProduct(ctx context.Context, field, value string) (*Product, error) {
	if value == "" {
		return nil, nil
	}
	products, err := o.searchProducts(ctx, []any{[]any{field, "=", value}}, 1)
	if err != nil || len(products) == 0 {
		return nil, err
	}
	return products[0], nil
}

func (o *Odoo) CreateProduct(ctx context.Context, p *NewProduct) (*Product, error) {
	values := map[string]any{
		"name":             p.Name,
		"default_code":     orFalse(p.DefaultCode),
		"barcode":          orFalse(p.Barcode),
		"description_sale": orFalse(p.Description),
		"lst_price":        p.Price.InexactFloat64(),
		"type":             p.Type,
	}
	if p.Type == "" {
		values["type"] = PRODUCT_STORABLE
	}
	id, err := o.client.Create(ctx, "product.product", values, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create product %s", p.Name)
	}
	products, err := o.searchProducts(ctx, []any{[]any{"id", "=", id}}, 1)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, errors.Errorf("created product %d not found", id)
	}
	return products[0], nil
}

// ExportableProducts lists products carrying an internal reference.
func (o *Odoo) ExportableProducts(ctx context.Context) ([]*Product, error) {
	return o.searchProducts(ctx, []any{[]any{"default_code", "!=", false}}, 0)
}
