package features

// Feature identifies a product capability that can be enabled per subscription tier.
type Feature string

const (
	Dashboard          Feature = "dashboard"
	LoadManagement     Feature = "load_management"
	CustomerManagement Feature = "customer_management"
	DriverManagement   Feature = "driver_management"
	VehicleManagement  Feature = "vehicle_management"
	BasicReporting     Feature = "basic_reporting"

	Invoicing          Feature = "invoicing"
	ExpenseTracking    Feature = "expense_tracking"
	DispatchBoard      Feature = "dispatch_board"
	DocumentStorage    Feature = "document_storage"
	EmailNotifications Feature = "email_notifications"

	LiveTracking       Feature = "live_tracking"
	Settlements        Feature = "settlements"
	AdvancedReporting  Feature = "advanced_reporting"
	RouteOptimization  Feature = "route_optimization"
	IFTAReporting      Feature = "ifta_reporting"
	CustomerPortal     Feature = "customer_portal"

	APIAccess          Feature = "api_access"
	CustomIntegrations Feature = "custom_integrations"
	WhiteLabel         Feature = "white_label"
	AuditLogs          Feature = "audit_logs"
	ELDIntegration     Feature = "eld_integration"
	SSO                Feature = "sso"
	DedicatedSupport   Feature = "dedicated_support"
)

// Category groups features for display.
type Category string

const (
	CategoryOperations Category = "operations"
	CategoryFinance    Category = "finance"
	CategoryTracking   Category = "tracking"
	CategoryReporting  Category = "reporting"
	CategoryPlatform   Category = "platform"
	CategorySupport    Category = "support"
)

// Info carries display metadata for a feature.
type Info struct {
	ID          Feature  `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

var catalog = map[Feature]Info{
	Dashboard:          {Dashboard, "Dashboard", "Operational overview of loads, revenue and fleet", CategoryOperations},
	LoadManagement:     {LoadManagement, "Load Management", "Create, quote and track loads through delivery", CategoryOperations},
	CustomerManagement: {CustomerManagement, "Customer Management", "Shipper and consignee records", CategoryOperations},
	DriverManagement:   {DriverManagement, "Driver Management", "Driver roster, licensing and status", CategoryOperations},
	VehicleManagement:  {VehicleManagement, "Vehicle Management", "Trucks and trailers with maintenance status", CategoryOperations},
	BasicReporting:     {BasicReporting, "Basic Reporting", "Standard load and revenue reports", CategoryReporting},

	Invoicing:          {Invoicing, "Invoicing", "Bill customers for delivered loads", CategoryFinance},
	ExpenseTracking:    {ExpenseTracking, "Expense Tracking", "Fuel, tolls and maintenance expenses", CategoryFinance},
	DispatchBoard:      {DispatchBoard, "Dispatch Board", "Assign drivers and equipment to loads", CategoryOperations},
	DocumentStorage:    {DocumentStorage, "Document Storage", "Rate confirmations, BOLs and PODs", CategoryOperations},
	EmailNotifications: {EmailNotifications, "Email Notifications", "Status updates sent to customers", CategoryPlatform},

	LiveTracking:      {LiveTracking, "Live Tracking", "Real-time truck positions on the map", CategoryTracking},
	Settlements:       {Settlements, "Driver Settlements", "Driver pay statements and deductions", CategoryFinance},
	AdvancedReporting: {AdvancedReporting, "Advanced Reporting", "Lane profitability and custom reports", CategoryReporting},
	RouteOptimization: {RouteOptimization, "Route Optimization", "Multi-stop route planning", CategoryTracking},
	IFTAReporting:     {IFTAReporting, "IFTA Reporting", "Fuel tax mileage by jurisdiction", CategoryReporting},
	CustomerPortal:    {CustomerPortal, "Customer Portal", "Self-service shipment visibility for customers", CategoryPlatform},

	APIAccess:          {APIAccess, "API Access", "Programmatic access to TMS data", CategoryPlatform},
	CustomIntegrations: {CustomIntegrations, "Custom Integrations", "Accounting and load board integrations", CategoryPlatform},
	WhiteLabel:         {WhiteLabel, "White Label", "Custom branding and domain", CategoryPlatform},
	AuditLogs:          {AuditLogs, "Audit Logs", "Change history for compliance", CategoryPlatform},
	ELDIntegration:     {ELDIntegration, "ELD Integration", "Electronic logging device hours of service", CategoryTracking},
	SSO:                {SSO, "Single Sign-On", "SAML and OIDC sign-in", CategoryPlatform},
	DedicatedSupport:   {DedicatedSupport, "Dedicated Support", "Named account manager", CategorySupport},
}

// FeatureInfoFor returns the catalog entry for f. Unknown features yield a
// placeholder named after the identifier and false.
func FeatureInfoFor(f Feature) (Info, bool) {
	info, ok := catalog[f]
	if !ok {
		return Info{ID: f, Name: string(f)}, false
	}
	return info, true
}

// AllFeatures returns every catalogued feature in declaration order of the tier matrix.
func AllFeatures() []Feature {
	out := make([]Feature, len(allOrdered))
	copy(out, allOrdered)
	return out
}

// IsKnown reports whether f is part of the catalog.
func IsKnown(f Feature) bool {
	_, ok := catalog[f]
	return ok
}
