package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/oakmount/circuithub/internal/device"
	"github.com/oakmount/circuithub/internal/hub"
)

// CloseInvalidCredentials is the close code sent to a device presenting
// a bad or unknown auth token. In the 4000-4999 application range, so it
// is distinguishable from a normal closure.
const CloseInvalidCredentials = 4001

// closeWriteTimeout bounds the rejection close handshake.
const closeWriteTimeout = 5 * time.Second

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// handleDashboardWS admits a dashboard session. The user id comes from
// the path; a reconnect for the same user replaces the previous session.
func (s *Server) handleDashboardWS(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeBadRequest(w, "user id is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	var client *hub.Client
	client = hub.NewClient(conn, s.wsCfg, s.logger, nil, func() {
		s.hub.RemoveDashboard(userID, client)
	})

	if evicted := s.hub.RegisterDashboard(userID, client); evicted != nil {
		evicted.Close()
	}
	client.Start()
}

// handleDeviceWS admits a device connection. The claimed identity and
// token are checked against the registry store before any registry
// mutation: a mismatch or unknown device is rejected with close code
// 4001 and leaves no trace in the hub.
func (s *Server) handleDeviceWS(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	authToken := chi.URLParam(r, "authToken")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	d, err := s.devices.GetByID(r.Context(), deviceID)
	if err != nil {
		if !errors.Is(err, device.ErrDeviceNotFound) {
			s.logger.Error("device lookup failed during admission", "device_id", deviceID, "error", err)
		}
		rejectConnection(conn)
		return
	}
	if subtle.ConstantTimeCompare([]byte(d.AuthToken), []byte(authToken)) != 1 {
		s.logger.Warn("device presented invalid auth token", "device_id", deviceID)
		rejectConnection(conn)
		return
	}

	// Best-effort: the record keeps the last source address.
	if host, _, splitErr := net.SplitHostPort(r.RemoteAddr); splitErr == nil {
		if ipErr := s.devices.UpdateIP(r.Context(), deviceID, host); ipErr != nil {
			s.logger.Warn("failed to record device ip", "device_id", deviceID, "error", ipErr)
		}
	}

	var client *hub.Client
	client = hub.NewClient(conn, s.wsCfg, s.logger,
		func(data []byte) {
			s.coordinator.HandleDeviceMessage(context.Background(), deviceID, data)
		},
		func() {
			s.coordinator.HandleDeviceDisconnected(context.Background(), deviceID, client)
		},
	)

	s.coordinator.HandleDeviceConnected(r.Context(), deviceID, client)
	client.Start()
}

// rejectConnection closes an upgraded connection with the invalid
// credentials close code.
func rejectConnection(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(CloseInvalidCredentials, "invalid device credentials")
	//nolint:errcheck // Best-effort close handshake; connection is dropped either way
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	conn.Close()
}
