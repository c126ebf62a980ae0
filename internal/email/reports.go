package email

// Report emails replace plain nurture copy at the report cadence steps.
// Each step has a theme; the body is picked per lead category with a
// generic fallback for Unknown.

var reportSubjects = map[string]string{
	"report_step_3": "Your custom ROI analysis",
	"report_step_5": "How teams like yours rolled this out",
	"report_step_7": "The outcomes report, prepared for you",
}

var reportCopy = map[string]map[string]string{
	"report_step_3": {
		"HumeConnectType": "We ran the remote-monitoring numbers for an organization of your profile. The attached analysis covers reimbursement, staffing impact and a twelve-month ROI projection.",
		"WholesaleType":   "The bulk pricing calculator below is filled in for your volume band. It covers unit economics, margin at each tier and the reorder model our resellers use.",
		"AffiliateType":   "Here is the commission breakdown for the partner program: rates per referral tier, payout cadence and what our top partners earn in a typical quarter.",
	},
	"report_step_5": {
		"HumeConnectType": "This integration guide walks through connecting the platform to the systems you already run, with the typical timeline our clinical customers see.",
		"WholesaleType":   "Three reseller stories from teams at your scale: how they launched, what moved their volume and the numbers twelve months in.",
		"AffiliateType":   "The partner tracking guide below shows exactly how referrals are attributed, how the dashboard reads and when payouts land.",
	},
	"report_step_7": {
		"HumeConnectType": "The clinical outcomes report: case studies and the measured results behind them, from organizations that started where you are now.",
		"WholesaleType":   "A concrete implementation timeline from signed agreement to first reorder, based on the last ten reseller launches.",
		"AffiliateType":   "The complete onboarding guide: everything between signing up and your first payout, in the order it happens.",
	},
}

// reportBody resolves the report copy for a template key and category.
// An unmapped category gets the first report theme's generic framing.
func reportBody(templateKey, category string) (string, bool) {
	byCategory, ok := reportCopy[templateKey]
	if !ok {
		return "", false
	}
	if body, ok := byCategory[category]; ok {
		return body, true
	}
	return "We put together a short report based on what you told us at intake. The highlights are below, and a call walks through the rest.", true
}
