package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/sangkips/quoteflow-api/internal/application/service"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/pkg/utils"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, *utils.JWTManager, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtManager := utils.NewJWTManager("secret", time.Hour)
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws", ServeWs(hub, jwtManager))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, jwtManager, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url, token string) *gorilla.Conn {
	t.Helper()
	conn, _, err := gorilla.DefaultDialer.Dial(url+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() < n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_DeliversToOwnerAndAdmins(t *testing.T) {
	hub, jwtManager, url := startHub(t)
	owner, stranger, admin := uuid.New(), uuid.New(), uuid.New()

	ownerToken, _ := jwtManager.GenerateAccessToken(owner, "", []string{entity.RoleAgent})
	strangerToken, _ := jwtManager.GenerateAccessToken(stranger, "", []string{entity.RoleAgent})
	adminToken, _ := jwtManager.GenerateAccessToken(admin, "", []string{entity.RoleAdmin})

	ownerConn := dial(t, url, ownerToken)
	strangerConn := dial(t, url, strangerToken)
	adminConn := dial(t, url, adminToken)
	waitForClients(t, hub, 3)

	hub.Publish(service.Event{Type: service.EventTransitioned, ActorID: owner, Status: "review", Message: "Order sent for review"})

	for name, conn := range map[string]*gorilla.Conn{"owner": ownerConn, "admin": adminConn} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("%s read: %v", name, err)
		}
		var got service.Event
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatal(err)
		}
		if got.Type != service.EventTransitioned || got.Status != "review" {
			t.Errorf("%s received %+v", name, got)
		}
	}

	strangerConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := strangerConn.ReadMessage(); err == nil {
		t.Error("another agent must not receive the event")
	}
}

func TestHub_CurrencyEventsStayWithOwner(t *testing.T) {
	hub, jwtManager, url := startHub(t)
	owner, admin := uuid.New(), uuid.New()
	adminToken, _ := jwtManager.GenerateAccessToken(admin, "", []string{entity.RoleAdmin})
	adminConn := dial(t, url, adminToken)
	waitForClients(t, hub, 1)

	hub.Publish(service.Event{Type: service.EventAwaitingConfirmation, ActorID: owner})

	adminConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := adminConn.ReadMessage(); err == nil {
		t.Error("currency prompts belong to the session owner")
	}
}

func TestServeWs_RejectsMissingToken(t *testing.T) {
	_, _, url := startHub(t)
	_, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial without token should fail")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Errorf("status = %v, want 401", resp)
	}
}
