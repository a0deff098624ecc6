package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money fields are written as JSON numbers, like every other numeric field.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Sale is a raw sale record as stored by the data-access layer. CreatedAt and
// Items are kept in their stored text form and parsed at the report boundary.
type Sale struct {
	ID         string `json:"id"`
	CreatedAt  string `json:"created_at"`
	Total      Amount `json:"total"`
	CustomerID string `json:"customer_id,omitempty"`
	Items      string `json:"items"`
}

type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price Amount  `json:"price"`
	Cost  *Amount `json:"cost,omitempty"`
	Stock int     `json:"stock"`
}

type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot is one consistent read of the three raw collections. It is treated
// as immutable for the duration of a report computation.
type Snapshot struct {
	Sales     []Sale     `json:"sales"`
	Products  []Product  `json:"products"`
	Customers []Customer `json:"customers"`
	FetchedAt time.Time  `json:"fetched_at"`
}

type RangeKind string

const (
	RangeToday   RangeKind = "today"
	RangeWeek    RangeKind = "week"
	RangeMonth   RangeKind = "month"
	RangeQuarter RangeKind = "quarter"
	RangeYear    RangeKind = "year"
)

var RangeKinds = []RangeKind{RangeToday, RangeWeek, RangeMonth, RangeQuarter, RangeYear}

type DateRange struct {
	Kind      RangeKind `json:"kind"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Label     string    `json:"label"`
}

type DailyRevenuePoint struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

type ProductRollup struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Revenue   decimal.Decimal `json:"revenue"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type CustomerRollup struct {
	CustomerID string          `json:"customer_id"`
	Name       string          `json:"name"`
	Revenue    decimal.Decimal `json:"revenue"`
	Orders     int             `json:"orders"`
}

type BusinessMetrics struct {
	TotalOrders           int             `json:"total_orders"`
	AverageOrderValue     decimal.Decimal `json:"average_order_value"`
	TotalItemsSold        decimal.Decimal `json:"total_items_sold"`
	AvgItemsPerOrder      float64         `json:"avg_items_per_order"`
	InventoryValue        decimal.Decimal `json:"inventory_value"`
	InventoryTurnover     float64         `json:"inventory_turnover"`
	ProfitMarginPercent   float64         `json:"profit_margin_percent"`
	DaysInRange           int             `json:"days_in_range"`
	SalesPerDay           float64         `json:"sales_per_day"`
	RevenuePerDay         decimal.Decimal `json:"revenue_per_day"`
	RevenueGrowth         float64         `json:"revenue_growth"`
	PreviousRevenue       decimal.Decimal `json:"previous_revenue"`
	UniqueCustomers       int             `json:"unique_customers"`
	AvgRevenuePerCustomer decimal.Decimal `json:"avg_revenue_per_customer"`
}

type InventorySummary struct {
	Products          int `json:"products"`
	UnitsInStock      int `json:"units_in_stock"`
	LowStock          int `json:"low_stock"`
	OutOfStock        int `json:"out_of_stock"`
	LowStockThreshold int `json:"low_stock_threshold"`
}

type Report struct {
	Range                 DateRange           `json:"range"`
	GeneratedAt           time.Time           `json:"generated_at"`
	TotalRevenue          decimal.Decimal     `json:"total_revenue"`
	TotalCost             decimal.Decimal     `json:"total_cost"`
	TotalProfit           decimal.Decimal     `json:"total_profit"`
	DailyRevenue          []DailyRevenuePoint `json:"daily_revenue"`
	TopProductsByRevenue  []ProductRollup     `json:"top_products_by_revenue"`
	TopProductsByQuantity []ProductRollup     `json:"top_products_by_quantity"`
	TopCustomers          []CustomerRollup    `json:"top_customers"`
	Metrics               BusinessMetrics     `json:"metrics"`
	Inventory             InventorySummary    `json:"inventory"`
}

type RangeInfo struct {
	Kind      RangeKind `json:"kind"`
	Label     string    `json:"label"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        Role   `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     Role
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      Role
	Active    bool
	CreatedAt time.Time
}
