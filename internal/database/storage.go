package database

const DB_NAME = "db.db"

const SCHEMA_VERSION = 1

const DB_SCHEMA = `CREATE TABLE Version (
	ID integer PRIMARY KEY AUTOINCREMENT,
	Name text,
	Version integer
);

CREATE TABLE SyncState (
	ID integer PRIMARY KEY AUTOINCREMENT,
	Instance text NOT NULL,
	Name text NOT NULL,
	Value text,
	UNIQUE (Instance, Name)
);

CREATE TABLE Sequence (
	Name text PRIMARY KEY,
	Value integer NOT NULL
);

CREATE TABLE Queue (
	ID integer PRIMARY KEY AUTOINCREMENT,
	Name text,
	Kind text,
	Instance text,
	State text,
	CreatedBy text,
	LogBookID integer,
	ProcessCount integer DEFAULT 0,
	IsActionRequire integer DEFAULT 0,
	CreatedAt datetime
);

CREATE TABLE QueueLine (
	ID integer PRIMARY KEY AUTOINCREMENT,
	QueueID integer,
	Kind text,
	Instance text,
	RemoteID integer,
	Name text,
	Data text,
	State text,
	ErpID integer,
	ProcessedAt datetime,
	CreatedAt datetime
);

CREATE INDEX QueueLineQueueID ON QueueLine (QueueID);

CREATE TABLE LogBook (
	ID integer PRIMARY KEY AUTOINCREMENT,
	Name text,
	Type text,
	Instance text,
	Model text,
	Message text,
	CreatedAt datetime
);

CREATE TABLE LogLine (
	ID integer PRIMARY KEY AUTOINCREMENT,
	LogBookID integer,
	Model text,
	Message text,
	OrderRef text,
	DefaultCode text,
	ResID integer,
	CreatedAt datetime
);

CREATE INDEX LogLineLogBookID ON LogLine (LogBookID);

CREATE TABLE OrderMap (
	ID integer PRIMARY KEY AUTOINCREMENT,
	Instance text,
	ShopifyOrderID integer,
	OrderNumber text,
	Name text,
	SaleOrderID integer,
	LocationID integer,
	FinancialStatus text,
	FulfillmentStatus text,
	IsRisky integer DEFAULT 0,
	IsPOS integer DEFAULT 0,
	IsServiceTrackingUpdated integer DEFAULT 0,
	CanceledInShopify integer DEFAULT 0,
	ClosedAt datetime,
	CreatedAt datetime,
	UNIQUE (Instance, ShopifyOrderID)
);

CREATE TABLE OrderLineMap (
	ID integer PRIMARY KEY AUTOINCREMENT,
	OrderMapID integer,
	SaleOrderLineID integer,
	ShopifyLineID integer,
	IsDelivery integer DEFAULT 0,
	IsGiftCard integer DEFAULT 0,
	IsService integer DEFAULT 0
);

CREATE TABLE PickingMap (
	ID integer PRIMARY KEY AUTOINCREMENT,
	Instance text,
	PickingID integer,
	SaleOrderID integer,
	UpdatedInShopify integer DEFAULT 0,
	CancelledInShopify integer DEFAULT 0,
	ManualAction integer DEFAULT 0,
	FulfillmentID integer,
	UpdatedAt datetime,
	UNIQUE (Instance, PickingID)
);

CREATE TABLE VariantMap (
	ID integer PRIMARY KEY AUTOINCREMENT,
	Instance text,
	ShopifyProductID integer,
	ShopifyVariantID integer,
	InventoryItemID integer,
	DefaultCode text,
	Barcode text,
	TemplateName text,
	Title text,
	Description text,
	Price text,
	ErpTemplateID integer,
	ErpProductID integer,
	ErpCategoryID integer,
	Exported integer DEFAULT 0,
	UpdatedAt datetime
);

CREATE INDEX VariantMapShopifyVariantID ON VariantMap (Instance, ShopifyVariantID);

CREATE TABLE CustomerMap (
	ID integer PRIMARY KEY AUTOINCREMENT,
	Instance text,
	ShopifyCustomerID integer,
	PartnerID integer,
	UNIQUE (Instance, ShopifyCustomerID)
);

CREATE TABLE LocationMap (
	ID integer PRIMARY KEY AUTOINCREMENT,
	Instance text,
	ShopifyLocationID integer,
	Name text,
	IsPrimary integer DEFAULT 0,
	Active integer DEFAULT 1,
	UNIQUE (Instance, ShopifyLocationID)
);

CREATE TABLE WebhookEvent (
	ID integer PRIMARY KEY AUTOINCREMENT,
	WebhookID text UNIQUE,
	Instance text,
	Topic text,
	ReceivedAt datetime
);
`
