package mapping

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type Location struct {
	ID                int    `db:"ID"`
	Instance          string `db:"Instance"`
	ShopifyLocationID int64  `db:"ShopifyLocationID"`
	Name              string `db:"Name"`
	IsPrimary         bool   `db:"IsPrimary"`
	Active            bool   `db:"Active"`
}

func (l *Location) Save(db *sqlx.DB) error {
	_, err := db.NamedExec(`INSERT INTO LocationMap (Instance, ShopifyLocationID, Name, IsPrimary, Active)
		VALUES (:Instance, :ShopifyLocationID, :Name, :IsPrimary, :Active)
		ON CONFLICT (Instance, ShopifyLocationID) DO UPDATE SET
			Name=excluded.Name, IsPrimary=excluded.IsPrimary, Active=excluded.Active`, l)
	if err != nil {
		return errors.Wrapf(err, "failed UPSERT LocationMap %d", l.ShopifyLocationID)
	}
	return nil
}

func ListLocations(db *sqlx.DB, instance string) ([]*Location, error) {
	var locations []*Location
	if err := db.Select(&locations, "SELECT * FROM LocationMap WHERE Instance=$1 AND Active=1 ORDER BY ID", instance); err != nil {
		return nil, errors.Wrap(err, "failed SELECT LocationMap")
	}
	return locations, nil
}

// PrimaryLocation returns nil when locations were never imported.
func PrimaryLocation(db *sqlx.DB, instance string) (*Location, error) {
	var locations []*Location
	if err := db.Select(&locations, "SELECT * FROM LocationMap WHERE Instance=$1 AND IsPrimary=1 LIMIT 1", instance); err != nil {
		return nil, errors.Wrap(err, "failed SELECT LocationMap")
	}
	if len(locations) == 0 {
		return nil, nil
	}
	return locations[0], nil
}
