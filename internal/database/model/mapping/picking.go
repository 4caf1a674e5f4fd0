package mapping

import (
	"database/sql"
	"time"

	"ShopifyWithOdoo/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Picking carries the fulfillment export flags of an ERP delivery order.
type Picking struct {
	ID                 int           `db:"ID"`
	Instance           string        `db:"Instance"`
	PickingID          int           `db:"PickingID"`
	SaleOrderID        int           `db:"SaleOrderID"`
	UpdatedInShopify   bool          `db:"UpdatedInShopify"`
	CancelledInShopify bool          `db:"CancelledInShopify"`
	ManualAction       bool          `db:"ManualAction"`
	FulfillmentID      sql.NullInt64 `db:"FulfillmentID"`
	UpdatedAt          time.Time     `db:"UpdatedAt"`
}

// GetPicking returns the stored flags or a fresh row for the picking.
func GetPicking(db *sqlx.DB, instance string, pickingID, saleOrderID int) (*Picking, error) {
	var pickings []*Picking
	err := db.Select(&pickings, "SELECT * FROM PickingMap WHERE Instance=$1 AND PickingID=$2", instance, pickingID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT PickingMap %d", pickingID)
	}
	if len(pickings) == 0 {
		return &Picking{Instance: instance, PickingID: pickingID, SaleOrderID: saleOrderID}, nil
	}
	return pickings[0], nil
}

func (p *Picking) Save(db *sqlx.DB) error {
	p.UpdatedAt = database.Now()
	query := `INSERT INTO PickingMap (Instance, PickingID, SaleOrderID, UpdatedInShopify, CancelledInShopify, ManualAction, FulfillmentID, UpdatedAt)
		VALUES (:Instance, :PickingID, :SaleOrderID, :UpdatedInShopify, :CancelledInShopify, :ManualAction, :FulfillmentID, :UpdatedAt)
		ON CONFLICT (Instance, PickingID) DO UPDATE SET
			SaleOrderID=excluded.SaleOrderID, UpdatedInShopify=excluded.UpdatedInShopify,
			CancelledInShopify=excluded.CancelledInShopify, ManualAction=excluded.ManualAction,
			FulfillmentID=excluded.FulfillmentID, UpdatedAt=excluded.UpdatedAt`
	if _, err := db.NamedExec(query, p); err != nil {
		return errors.Wrapf(err, "failed UPSERT PickingMap %d", p.PickingID)
	}
	return nil
}

// Settled reports whether the picking needs no further fulfillment export.
func (p *Picking) Settled() bool {
	return p.UpdatedInShopify || p.CancelledInShopify || p.ManualAction
}

// SettledPickingIDs returns the pickings of an instance excluded from fulfillment export.
func SettledPickingIDs(db *sqlx.DB, instance string) (map[int]bool, error) {
	var ids []int
	err := db.Select(&ids, `SELECT PickingID FROM PickingMap WHERE Instance=$1
		AND (UpdatedInShopify=1 OR CancelledInShopify=1 OR ManualAction=1)`, instance)
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT PickingMap")
	}
	result := make(map[int]bool, len(ids))
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}
