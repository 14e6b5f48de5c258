package devices

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/gorilla/mux"
	"golang.org/x/sync/singleflight"

	"github.com/bavix/avwatch/internal/auth"
	customerrors "github.com/bavix/avwatch/internal/errors"
	"github.com/bavix/avwatch/internal/permissions"
)

// Guard wraps the handler of a state changing route. action is the
// permission the route is registered under.
type Guard func(action string, next http.Handler) http.Handler

// MiddlewareGuard adapts a plain middleware that ignores the action.
func MiddlewareGuard(mw func(http.Handler) http.Handler) Guard {
	return func(_ string, next http.Handler) http.Handler {
		return mw(next)
	}
}

// APIHandler handles HTTP requests for devices and permissions.
type APIHandler struct {
	manager  *Manager
	requests *permissions.Registry
	guards   []Guard
	refresh  singleflight.Group
}

// NewAPIHandler creates a new API handler. Requests made over HTTP are kept
// in requests until they are resolved or expire.
func NewAPIHandler(manager *Manager, requests *permissions.Registry) *APIHandler {
	if requests == nil {
		requests = permissions.NewRegistry(0, 0)
	}

	return &APIHandler{
		manager:  manager,
		requests: requests,
	}
}

// WithGuards wraps every state changing route with guards. The first guard
// sees the request first.
func (h *APIHandler) WithGuards(guards ...Guard) *APIHandler {
	h.guards = append(h.guards, guards...)

	return h
}

// RegisterRoutes registers all device and permission API routes.
func (h *APIHandler) RegisterRoutes(api *mux.Router) {
	devicesAPI := api.PathPrefix("/devices").Subrouter()

	// Views and actions (must come before /{id} routes)
	devicesAPI.HandleFunc("/cameras", h.GetCameras).Methods(http.MethodGet)
	devicesAPI.HandleFunc("/microphones", h.GetMicrophones).Methods(http.MethodGet)
	devicesAPI.HandleFunc("/speakers", h.GetSpeakers).Methods(http.MethodGet)
	devicesAPI.HandleFunc("/lookup", h.LookupDevice).Methods(http.MethodGet)
	devicesAPI.Handle("/refresh", h.mutating(auth.PermissionRefreshDevices, h.RefreshDevices)).Methods(http.MethodPost)
	devicesAPI.HandleFunc("/preferred", h.GetAllPreferred).Methods(http.MethodGet)
	devicesAPI.HandleFunc("/preferred/{role}", h.GetPreferred).Methods(http.MethodGet)
	devicesAPI.Handle("/preferred/{role}", h.mutating(auth.PermissionManageDevices, h.SetPreferred)).Methods(http.MethodPut)

	devicesAPI.HandleFunc("", h.GetDevices).Methods(http.MethodGet)
	devicesAPI.HandleFunc("/{id}", h.GetDevice).Methods(http.MethodGet)

	permissionsAPI := api.PathPrefix("/permissions").Subrouter()
	permissionsAPI.HandleFunc("", h.GetPermissions).Methods(http.MethodGet)
	permissionsAPI.HandleFunc("/{capability}", h.GetPermission).Methods(http.MethodGet)
	permissionsAPI.Handle("/{capability}", h.mutating(auth.PermissionManageAccess, h.SetPermission)).Methods(http.MethodPut)
	permissionsAPI.Handle("/{capability}/requests", h.mutating(auth.PermissionRequestAccess, h.CreateRequest)).Methods(http.MethodPost)
	permissionsAPI.Handle("/{capability}/requests/{id}", h.mutating(auth.PermissionResolveAccess, h.ResolveRequest)).Methods(http.MethodPost)
}

func (h *APIHandler) mutating(action auth.Permission, fn http.HandlerFunc) http.Handler {
	var handler http.Handler = fn

	for i := len(h.guards) - 1; i >= 0; i-- {
		handler = h.guards[i](string(action), handler)
	}

	return handler
}

// GetDevices returns the whole catalog.
func (h *APIHandler) GetDevices(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}

	snapshot := h.manager.Snapshot()

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"devices":       nonNil(snapshot.Devices),
		"count":         len(snapshot.Devices),
		"cameras":       len(snapshot.Cameras),
		"microphones":   len(snapshot.Microphones),
		"speakers":      len(snapshot.Speakers),
		"known_devices": snapshot.KnownDevices,
		"last_refresh":  snapshot.LastRefresh,
	})
}

// GetCameras returns the video inputs.
func (h *APIHandler) GetCameras(w http.ResponseWriter, r *http.Request) {
	h.handleDeviceList(w, r, RoleCamera)
}

// GetMicrophones returns the audio inputs.
func (h *APIHandler) GetMicrophones(w http.ResponseWriter, r *http.Request) {
	h.handleDeviceList(w, r, RoleMicrophone)
}

// GetSpeakers returns the audio outputs.
func (h *APIHandler) GetSpeakers(w http.ResponseWriter, r *http.Request) {
	h.handleDeviceList(w, r, RoleSpeaker)
}

// GetDevice returns a specific device by ID.
func (h *APIHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}

	deviceID := mux.Vars(r)["id"]

	device, exists := h.manager.GetDeviceByID(deviceID)
	if !exists {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{
			"error": "Device not found",
			"id":    deviceID,
		})

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, device)
}

// LookupDevice finds a device of a role by its exact label.
func (h *APIHandler) LookupDevice(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}

	role := Role(r.URL.Query().Get("role"))
	label := r.URL.Query().Get("label")

	device, err := h.manager.FindByLabel(role, label)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
		})

		return
	}

	if device == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{
			"error": "Device not found",
			"role":  string(role),
			"label": label,
		})

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, device)
}

// RefreshDevices runs a refresh and reports what it changed.
func (h *APIHandler) RefreshDevices(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}

	// concurrent refresh calls share one enumeration
	v, _, _ := h.refresh.Do("refresh", func() (any, error) {
		return h.manager.Refresh(context.WithoutCancel(r.Context())), nil
	})
	result, _ := v.(RefreshResult)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"outcome":       result.Outcome,
		"known_devices": result.KnownDevices,
		"added":         result.Merge.Added,
		"updated":       result.Merge.Updated,
		"removed":       result.Merge.Removed,
		"dropped":       result.Merge.Dropped,
		"count":         len(h.manager.Devices()),
		"duration_ms":   result.Duration.Milliseconds(),
	})
}

// GetAllPreferred returns the preferred device of every role that has one.
func (h *APIHandler) GetAllPreferred(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}

	preferred := make(map[Role]*Device)

	for _, role := range Roles() {
		if device := h.manager.Preferred(role); device != nil {
			preferred[role] = device
		}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"preferred": preferred,
	})
}

// GetPreferred returns the preferred device of one role.
func (h *APIHandler) GetPreferred(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}

	role := Role(mux.Vars(r)["role"])
	if _, err := h.manager.DevicesByRole(role); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
		})

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"role":   role,
		"device": h.manager.Preferred(role),
	})
}

// SetPreferred selects or clears the preferred device of a role.
func (h *APIHandler) SetPreferred(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}

	role := Role(mux.Vars(r)["role"])

	var req struct {
		DeviceID string `json:"deviceId"`
	}

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": "Invalid request body: " + err.Error(),
		})

		return
	}

	if err := h.manager.SetPreferred(role, req.DeviceID); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, customerrors.ErrDeviceNotFound) {
			status = http.StatusNotFound
		}

		render.Status(r, status)
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
			"role":  string(role),
		})

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"role":   role,
		"device": h.manager.Preferred(role),
	})
}

// GetPermissions returns the state of both capabilities.
func (h *APIHandler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		permissions.Camera.String():     h.manager.Camera().Status(),
		permissions.Microphone.String(): h.manager.Microphone().Status(),
		"pending_requests":              h.requests.Len(),
	})
}

// GetPermission returns the state of one capability.
func (h *APIHandler) GetPermission(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.controller(w, r)
	if !ok {
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"capability": controller.Capability(),
		"status":     controller.Status(),
	})
}

// SetPermission records a state learned outside a request, for example from
// a permission change notification of the host.
func (h *APIHandler) SetPermission(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req struct {
		State string `json:"state"`
	}

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": "Invalid request body: " + err.Error(),
		})

		return
	}

	state, err := permissions.ParseState(req.State)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
		})

		return
	}

	controller.Set(state)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"capability": controller.Capability(),
		"status":     controller.Status(),
	})
}

// CreateRequest starts an access request and returns the id to resolve it with.
func (h *APIHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.controller(w, r)
	if !ok {
		return
	}

	req := controller.Request()
	id := h.requests.Add(req)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]any{
		"id":             id,
		"capability":     req.Capability(),
		"starting_state": req.StartingState(),
		"status":         controller.Status(),
	})
}

// ResolveRequest applies the prompt outcome to an outstanding request.
func (h *APIHandler) ResolveRequest(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.controller(w, r)
	if !ok {
		return
	}

	requestID := mux.Vars(r)["id"]

	var req struct {
		Outcome string `json:"outcome"`
	}

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": "Invalid request body: " + err.Error(),
		})

		return
	}

	outcome, err := permissions.ParseOutcome(req.Outcome)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
		})

		return
	}

	pending, found := h.requests.Get(requestID)
	if !found || pending.Capability() != controller.Capability() {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{
			"error": customerrors.ErrRequestNotFoundWithID(requestID).Error(),
			"id":    requestID,
		})

		return
	}

	if err := h.requests.Resolve(requestID, outcome); err != nil {
		status := http.StatusConflict
		if errors.Is(err, customerrors.ErrRequestNotFound) {
			status = http.StatusNotFound
		}

		render.Status(r, status)
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
			"id":    requestID,
		})

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"id":         requestID,
		"capability": controller.Capability(),
		"outcome":    outcome,
		"status":     controller.Status(),
	})
}

func (h *APIHandler) controller(w http.ResponseWriter, r *http.Request) (*permissions.Controller, bool) {
	if !h.ready(w, r) {
		return nil, false
	}

	capability, err := permissions.ParseCapability(mux.Vars(r)["capability"])
	if err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
		})

		return nil, false
	}

	controller, err := h.manager.Permission(capability)
	if err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
		})

		return nil, false
	}

	return controller, true
}

// handleDeviceList is a common handler for the view endpoints.
func (h *APIHandler) handleDeviceList(w http.ResponseWriter, r *http.Request, role Role) {
	if !h.ready(w, r) {
		return
	}

	devices, err := h.manager.DevicesByRole(role)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
		})

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"devices":   nonNil(devices),
		"count":     len(devices),
		"role":      role,
		"preferred": h.manager.Preferred(role),
	})
}

func (h *APIHandler) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.manager != nil {
		return true
	}

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, map[string]any{
		"error": "Device manager not initialized",
	})

	return false
}

func nonNil(devices []*Device) []*Device {
	if devices == nil {
		return []*Device{}
	}

	return devices
}
