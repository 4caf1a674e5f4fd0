package mapping

import (
	"time"

	"ShopifyWithOdoo/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Variant links a Shopify variant to an ERP product.
type Variant struct {
	ID               int       `db:"ID"`
	Instance         string    `db:"Instance"`
	ShopifyProductID int64     `db:"ShopifyProductID"`
	ShopifyVariantID int64     `db:"ShopifyVariantID"`
	InventoryItemID  int64     `db:"InventoryItemID"`
	DefaultCode      string    `db:"DefaultCode"`
	Barcode          string    `db:"Barcode"`
	TemplateName     string    `db:"TemplateName"`
	Title            string    `db:"Title"`
	Description      string    `db:"Description"`
	Price            string    `db:"Price"`
	ErpTemplateID    int       `db:"ErpTemplateID"`
	ErpProductID     int       `db:"ErpProductID"`
	ErpCategoryID    int       `db:"ErpCategoryID"`
	Exported         bool      `db:"Exported"`
	UpdatedAt        time.Time `db:"UpdatedAt"`
}

func findOneVariant(db *sqlx.DB, query string, args ...interface{}) (*Variant, error) {
	var variants []*Variant
	if err := db.Select(&variants, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed SELECT VariantMap")
	}
	if len(variants) == 0 {
		return nil, nil
	}
	return variants[0], nil
}

// FindVariant looks a Shopify variant up, nil when unknown.
func FindVariant(db *sqlx.DB, instance string, variantID int64) (*Variant, error) {
	return findOneVariant(db, "SELECT * FROM VariantMap WHERE Instance=$1 AND ShopifyVariantID=$2 ORDER BY ID LIMIT 1", instance, variantID)
}

func FindVariantByCode(db *sqlx.DB, instance, code string) (*Variant, error) {
	if code == "" {
		return nil, nil
	}
	return findOneVariant(db, "SELECT * FROM VariantMap WHERE Instance=$1 AND DefaultCode=$2 ORDER BY Exported DESC, ID LIMIT 1", instance, code)
}

func FindVariantByErpProduct(db *sqlx.DB, instance string, productID int) (*Variant, error) {
	return findOneVariant(db, "SELECT * FROM VariantMap WHERE Instance=$1 AND ErpProductID=$2 ORDER BY Exported DESC, ID LIMIT 1", instance, productID)
}

func FindVariantByInventoryItem(db *sqlx.DB, instance string, itemID int64) (*Variant, error) {
	return findOneVariant(db, "SELECT * FROM VariantMap WHERE Instance=$1 AND InventoryItemID=$2 ORDER BY ID LIMIT 1", instance, itemID)
}

// Save inserts a new row (ID 0) or updates the existing one.
func (v *Variant) Save(db *sqlx.DB) error {
	v.UpdatedAt = database.Now()
	if v.ID == 0 {
		res, err := db.NamedExec(`INSERT INTO VariantMap (Instance, ShopifyProductID, ShopifyVariantID, InventoryItemID,
				DefaultCode, Barcode, TemplateName, Title, Description, Price, ErpTemplateID, ErpProductID, ErpCategoryID, Exported, UpdatedAt)
			VALUES (:Instance, :ShopifyProductID, :ShopifyVariantID, :InventoryItemID,
				:DefaultCode, :Barcode, :TemplateName, :Title, :Description, :Price, :ErpTemplateID, :ErpProductID, :ErpCategoryID, :Exported, :UpdatedAt)`, v)
		if err != nil {
			return errors.Wrapf(err, "failed INSERT VariantMap %s", v.DefaultCode)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "failed LastInsertId")
		}
		v.ID = int(id)
		return nil
	}
	_, err := db.NamedExec(`UPDATE VariantMap SET ShopifyProductID=:ShopifyProductID, ShopifyVariantID=:ShopifyVariantID,
			InventoryItemID=:InventoryItemID, DefaultCode=:DefaultCode, Barcode=:Barcode, TemplateName=:TemplateName,
			Title=:Title, Description=:Description, Price=:Price, ErpTemplateID=:ErpTemplateID, ErpProductID=:ErpProductID,
			ErpCategoryID=:ErpCategoryID, Exported=:Exported, UpdatedAt=:UpdatedAt
		WHERE ID=:ID`, v)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE VariantMap %d", v.ID)
	}
	return nil
}

// ListUnexported returns variants prepared for export but not yet created in Shopify.
func ListUnexported(db *sqlx.DB, instance string) ([]*Variant, error) {
	var variants []*Variant
	err := db.Select(&variants, "SELECT * FROM VariantMap WHERE Instance=$1 AND Exported=0 ORDER BY ErpTemplateID, ID", instance)
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT VariantMap")
	}
	return variants, nil
}

// ListStocked returns exported variants having an inventory item, keyed by ERP product.
func ListStocked(db *sqlx.DB, instance string) (map[int][]*Variant, error) {
	var variants []*Variant
	err := db.Select(&variants, "SELECT * FROM VariantMap WHERE Instance=$1 AND Exported=1 AND InventoryItemID<>0 AND ErpProductID<>0", instance)
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT VariantMap")
	}
	result := make(map[int][]*Variant)
	for _, v := range variants {
		result[v.ErpProductID] = append(result[v.ErpProductID], v)
	}
	return result, nil
}
