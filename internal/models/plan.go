package models

// Plan описывает тариф: цену за час, число одновременных слотов и ограничения доступа.
// ValueCap равный nil означает отсутствие ограничения.
type Plan struct {
	Tier         int      `json:"tier" validate:"required,gt=0"`
	Name         string   `json:"name" validate:"required"`
	PricePerHour float64  `json:"price_per_hour" validate:"gt=0"`
	Slots        int      `json:"slots" validate:"gte=0"`
	ValueCap     *float64 `json:"value_cap,omitempty"`
	Enabled      bool     `json:"enabled"`
	AdminOnly    bool     `json:"admin_only"`
}
