package domain

import (
	"fmt"
	"time"
)

type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableOccupied  TableStatus = "OCCUPIED"
	TableReserved  TableStatus = "RESERVED"
)

// ParseStatus maps the wire value onto a known status. The second result is
// false for anything outside the three valid states.
func ParseStatus(s string) (TableStatus, bool) {
	switch TableStatus(s) {
	case TableAvailable, TableOccupied, TableReserved:
		return TableStatus(s), true
	}
	return "", false
}

type Reservation struct {
	CustomerName string `json:"customerName,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Guests       int    `json:"guests"`
	Time         string `json:"time,omitempty"`
	Message      string `json:"message,omitempty"`
}

type Visitor struct {
	VisitorID string `json:"visitorId"`
	Guests    int    `json:"guests"`
}

type Table struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Capacity    int          `json:"capacity"`
	Status      TableStatus  `json:"status"`
	Reservation *Reservation `json:"reservation,omitempty"`
	Visitor     *Visitor     `json:"visitor,omitempty"`
}

// StatusUpdate is a status together with the only payload that status may
// carry. The fields are unexported so a reservation can never ride along with
// OCCUPIED or a visitor with RESERVED; construct one through AsAvailable,
// AsReserved, AsOccupied or AsStatus.
type StatusUpdate struct {
	status      TableStatus
	reservation *Reservation
	visitor     *Visitor
}

func AsAvailable() StatusUpdate {
	return StatusUpdate{status: TableAvailable}
}

func AsReserved(r Reservation) StatusUpdate {
	return StatusUpdate{status: TableReserved, reservation: &r}
}

func AsOccupied(v Visitor) StatusUpdate {
	return StatusUpdate{status: TableOccupied, visitor: &v}
}

// AsStatus is the bare transition: the new status with no payload. Any
// payload already on the table is dropped.
func AsStatus(s TableStatus) StatusUpdate {
	return StatusUpdate{status: s}
}

// Apply replaces the table's status and both payload slots in one step.
func (u StatusUpdate) Apply(t *Table) {
	t.Status = u.status
	t.Reservation = u.reservation
	t.Visitor = u.visitor
}

// VisitorEvent is one seating session in the per-day ledger. ExitTime and
// Duration stay nil while the session is open.
type VisitorEvent struct {
	VisitorID string     `json:"visitorId"`
	TableID   int64      `json:"tableId"`
	EntryTime time.Time  `json:"entryTime"`
	ExitTime  *time.Time `json:"exitTime,omitempty"`
	Duration  *int       `json:"duration,omitempty"`
	Guests    int        `json:"guests"`
}

func (ev *VisitorEvent) Open() bool {
	return ev.ExitTime == nil
}

type HourlyStat struct {
	Hour     int `json:"hour"`
	Visitors int `json:"visitors"`
	Sessions int `json:"sessions"`
}

type DailyAnalytics struct {
	Date            string       `json:"date"`
	TotalVisitors   int          `json:"totalVisitors"`
	TotalSessions   int          `json:"totalSessions"`
	AverageDuration int          `json:"averageDuration"`
	PeakHours       []HourlyStat `json:"peakHours"`
	ActiveSessions  int          `json:"activeSessions"`
}

type AnalyticsOverview struct {
	Today DailyAnalytics   `json:"today"`
	Week  []DailyAnalytics `json:"week"`
	Month []DailyAnalytics `json:"month"`
}

type PeakHoursReport struct {
	Period        string       `json:"period"`
	PeakHours     []HourlyStat `json:"peakHours"`
	TotalVisitors int          `json:"totalVisitors"`
	TotalSessions int          `json:"totalSessions"`
}

type TableStats struct {
	Available int `json:"available"`
	Occupied  int `json:"occupied"`
	Reserved  int `json:"reserved"`
	Total     int `json:"total"`
}

// DayKey is the ledger partition key for an instant: the calendar day in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

var defaultCapacities = [...]int{4, 2, 4, 4, 6, 2, 4, 2, 4, 6, 4, 2}

// DefaultTables returns the standard floor layout, every table AVAILABLE.
// The slice is built fresh per call, so callers may mutate their copy.
func DefaultTables() []Table {
	tables := make([]Table, len(defaultCapacities))
	for i, capacity := range defaultCapacities {
		id := int64(i + 1)
		tables[i] = Table{
			ID:       id,
			Name:     fmt.Sprintf("Table %d", id),
			Capacity: capacity,
			Status:   TableAvailable,
		}
	}
	return tables
}
