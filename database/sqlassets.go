package sqlassets

import "embed"

//go:embed schema/tenants.sql
var TenantsSQL string

//go:embed schema/tenant_users.sql
var TenantUsersSQL string

//go:embed schema/documents.sql
var DocumentsSQL string

// DocumentSchemas holds one JSON Schema per business collection, named <collection>.json.
//
//go:embed schema/documents/*.json
var DocumentSchemas embed.FS
