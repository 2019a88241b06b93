package handler

import (
	"autocut/internal/appcore"
	"autocut/internal/events"
	"autocut/internal/service"
)

// Canceler stops a running job; the in-process runner implements it.
type Canceler interface {
	Cancel(jobID string) bool
}

type Handler struct {
	Service   *service.Service
	Submitter appcore.Submitter
	Hub       *events.Hub
	Canceler  Canceler
}

func NewHandler(svc *service.Service, submitter appcore.Submitter, hub *events.Hub) *Handler {
	h := &Handler{Service: svc, Submitter: submitter, Hub: hub}
	if c, ok := submitter.(Canceler); ok {
		h.Canceler = c
	}
	return h
}
