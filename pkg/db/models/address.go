package models

// Address is the delivery destination embedded on orders and shopping lists.
type Address struct {
	Street  string  `gorm:"column:street"`
	City    string  `gorm:"column:city"`
	State   string  `gorm:"column:state"`
	ZipCode *string `gorm:"column:zip_code"`
	Phone   string  `gorm:"column:phone"`
}
