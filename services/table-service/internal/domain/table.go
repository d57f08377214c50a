package domain

import "time"

// TableStatus is a projection maintained by the saga consumer; the booking
// core never writes it directly.
type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableMaintenance TableStatus = "maintenance"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved, TableMaintenance:
		return true
	}
	return false
}

type Table struct {
	ID          string      `gorm:"primaryKey" json:"id"`
	ClubID      string      `gorm:"index" json:"clubId"`
	TableTypeID string      `gorm:"index" json:"tableTypeId"`
	TableNumber int32       `json:"tableNumber"`
	Floor       int32       `json:"floor"`
	HourlyRate  *int64      `json:"hourlyRate,omitempty"` // overrides the type default when set
	Status      TableStatus `gorm:"index;default:available" json:"status"`
	IsActive    bool        `gorm:"default:true" json:"isActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type Club struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	IsActive bool   `gorm:"default:true" json:"isActive"`
}

type TableType struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Name         string `json:"name"`
	PricePerHour int64  `json:"pricePerHour"`
	Description  string `json:"description,omitempty"`
}

// TableInfo is the joined listing row served (and cached) by the read side.
type TableInfo struct {
	Table
	ClubName string `json:"clubName"`
	TypeName string `json:"typeName"`
}
