package email

var subjects = map[string]string{
	"cadence_step_0":              "Welcome — here's what happens next",
	"cadence_step_1":              "Getting started with your evaluation",
	"cadence_step_2":              "Three ways teams like yours use the platform",
	"cadence_step_3":              "A quick case study you might like",
	"cadence_step_4":              "Still interested? Let's find a time",
	"cadence_step_5":              "What's holding you back?",
	"cadence_step_6":              "Pricing, plainly",
	"cadence_step_7":              "One question before we close your file",
	"cadence_step_8":              "Last note from us",
	"auto_reply_pricing_question": "About pricing",
	"auto_reply_objection":        "Fair point — here's our take",
	"auto_reply_unclear":          "Did we get that right?",
	"booking_link":                "Pick a time that works for you",
	"booked_asset_pack":           "You're booked — materials to review beforehand",
}
