package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	entities "github.com/zenGate-Global/freightdesk/domains/entities/be/service"
)

// ErrTenantRequired is returned when no tenant id was supplied.
var ErrTenantRequired = errors.New("tenant id is required")

// Reader is the read side of the entity repository.
type Reader interface {
	List(ctx context.Context, c entities.Collection, tenantID string, q entities.Query) ([]entities.Document, error)
	Exists(ctx context.Context, tenantID string, cs ...entities.Collection) (bool, error)
}

// Stats is the dashboard summary of one tenant. A tenant without data gets
// every counter at zero and HasData false.
type Stats struct {
	HasData         bool    `json:"hasData"`
	TotalLoads      int     `json:"totalLoads"`
	ActiveLoads     int     `json:"activeLoads"`
	CompletedLoads  int     `json:"completedLoads"`
	Revenue         float64 `json:"revenue"`
	PendingInvoices int     `json:"pendingInvoices"`
	ActiveDrivers   int     `json:"activeDrivers"`
	ActiveVehicles  int     `json:"activeVehicles"`
}

// primaryCollections decide whether a tenant is past onboarding.
var primaryCollections = []entities.Collection{
	entities.Loads,
	entities.Customers,
	entities.Drivers,
	entities.Vehicles,
}

// Service aggregates dashboard figures by scanning the tenant's documents.
type Service struct {
	reader Reader
}

// New constructs a Service instance.
func New(reader Reader) *Service {
	if reader == nil {
		panic("entities reader is required")
	}
	return &Service{reader: reader}
}

// TenantHasData reports whether the tenant owns any load, customer, driver or vehicle.
func (s *Service) TenantHasData(ctx context.Context, tenantID string) (bool, error) {
	if strings.TrimSpace(tenantID) == "" {
		return false, ErrTenantRequired
	}
	return s.reader.Exists(ctx, tenantID, primaryCollections...)
}

// DashboardStats computes the summary in one pass over loads, invoices,
// drivers and vehicles.
func (s *Service) DashboardStats(ctx context.Context, tenantID string) (Stats, error) {
	hasData, err := s.TenantHasData(ctx, tenantID)
	if err != nil {
		return Stats{}, err
	}
	if !hasData {
		return Stats{}, nil
	}

	stats := Stats{HasData: true}

	loads, err := s.all(ctx, entities.Loads, tenantID)
	if err != nil {
		return Stats{}, err
	}
	stats.TotalLoads = len(loads)
	for _, load := range loads {
		status, _ := entities.ParseLoadStatus(load.String(entities.FieldStatus))
		switch {
		case status.IsActive():
			stats.ActiveLoads++
		case status == entities.LoadDelivered:
			stats.CompletedLoads++
			stats.Revenue += load.Number("rate")
		}
	}

	invoices, err := s.all(ctx, entities.Invoices, tenantID)
	if err != nil {
		return Stats{}, err
	}
	for _, inv := range invoices {
		switch inv.String(entities.FieldStatus) {
		case "paid", "void":
		default:
			stats.PendingInvoices++
		}
	}

	drivers, err := s.all(ctx, entities.Drivers, tenantID)
	if err != nil {
		return Stats{}, err
	}
	stats.ActiveDrivers = countActive(drivers)

	vehicles, err := s.all(ctx, entities.Vehicles, tenantID)
	if err != nil {
		return Stats{}, err
	}
	stats.ActiveVehicles = countActive(vehicles)

	return stats, nil
}

func (s *Service) all(ctx context.Context, c entities.Collection, tenantID string) ([]entities.Document, error) {
	docs, err := s.reader.List(ctx, c, tenantID, entities.Query{})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c, err)
	}
	return docs, nil
}

// countActive counts documents not marked inactive. A missing status counts as active.
func countActive(docs []entities.Document) int {
	n := 0
	for _, d := range docs {
		if d.String(entities.FieldStatus) != "inactive" {
			n++
		}
	}
	return n
}
