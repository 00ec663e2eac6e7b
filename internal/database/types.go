package database

import (
	"time"
)

// AttendanceRecord is one row of the append-only attendance table.
type AttendanceRecord struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	EmployeeName string    `gorm:"column:employee_name;type:text;not null" json:"employee_name"`
	Latitude     float64   `gorm:"column:latitude" json:"latitude"`
	Longitude    float64   `gorm:"column:longitude" json:"longitude"`
	LocationName string    `gorm:"column:location_name;type:text" json:"location_name"`
	Timestamp    time.Time `gorm:"column:timestamp;type:datetime;default:CURRENT_TIMESTAMP" json:"timestamp"`
	ImagePath    string    `gorm:"column:image_path;type:text" json:"image_path"`
}

// TableName keeps the table name independent of gorm's pluralisation.
func (AttendanceRecord) TableName() string {
	return "attendance"
}

// AttendanceFilter narrows a listing. Zero values mean no restriction.
type AttendanceFilter struct {
	Name  string
	Since time.Time
	Limit int
}
