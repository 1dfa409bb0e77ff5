// Package models holds the GORM table models. Domain types carry no ORM
// tags; each model here has a ToDomain/FromDomain pair and the repositories
// in the parent package translate through them.
//
// Every aggregate table embeds AggregateColumns (id, timestamps, version).
package models

// All returns every storefront model, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&UserModel{},
		&RefreshTokenModel{},
		&CategoryModel{},
		&ProductModel{},
		&CartModel{},
		&CartItemModel{},
		&OrderModel{},
		&OrderItemModel{},
	}
}
