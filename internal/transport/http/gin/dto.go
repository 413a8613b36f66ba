package httpgin

import "time"

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ReserveRequest struct {
	CustomerName string `json:"customerName"`
	Phone        string `json:"phone"`
	Guests       int    `json:"guests" binding:"required,gt=0"`
	Time         string `json:"time"`
	Message      string `json:"message"`
}

type QuickSeatRequest struct {
	Guests int `json:"guests" binding:"omitempty,gt=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Envelope matches the response shape the dashboard consumes for stats and
// analytics reads.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

func envelope(data any) Envelope {
	return Envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
