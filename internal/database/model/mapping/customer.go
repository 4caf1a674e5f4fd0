package mapping

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type Customer struct {
	ID                int    `db:"ID"`
	Instance          string `db:"Instance"`
	ShopifyCustomerID int64  `db:"ShopifyCustomerID"`
	PartnerID         int    `db:"PartnerID"`
}

// FindCustomer returns the ERP partner of a Shopify customer, 0 when unknown.
func FindCustomer(db *sqlx.DB, instance string, customerID int64) (int, error) {
	var ids []int
	err := db.Select(&ids, "SELECT PartnerID FROM CustomerMap WHERE Instance=$1 AND ShopifyCustomerID=$2", instance, customerID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed SELECT CustomerMap %d", customerID)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

func SaveCustomer(db *sqlx.DB, instance string, customerID int64, partnerID int) error {
	_, err := db.Exec(`INSERT INTO CustomerMap (Instance, ShopifyCustomerID, PartnerID) VALUES ($1, $2, $3)
		ON CONFLICT (Instance, ShopifyCustomerID) DO UPDATE SET PartnerID=excluded.PartnerID`, instance, customerID, partnerID)
	if err != nil {
		return errors.Wrapf(err, "failed UPSERT CustomerMap %d", customerID)
	}
	return nil
}
