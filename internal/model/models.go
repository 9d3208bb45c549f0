package model

// AllModels is the full model set passed to AutoMigrate at startup and by
// the test harness, so both run the same schema.
var AllModels = []interface{}{
	&User{},
	&Merchant{},
	&FoodieGroup{},
	&GroupMembership{},
	&Coupon{},
	&CouponSubmission{},
	&EventSubmission{},
	&CouponRedemption{},
	&Purchase{},
	&PaymentEvent{},
}
