package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"spaceship-roguelite/persist"
	"spaceship-roguelite/sim"
)

// ---------- helpers ----------

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.JWTSecret = "test-secret"
	return cfg
}

// openTestDB opens a fresh SQLite database in a temp dir.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// startTestServer spins up an httptest.Server with a Hub and returns
// the server, its WebSocket URL, the hub, and a cleanup func.
func startTestServer(t *testing.T) (*httptest.Server, string, *Hub, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// Create a temp client dir with a minimal index.html
	tmpDir := t.TempDir()
	jsDir := filepath.Join(tmpDir, "js")
	os.MkdirAll(jsDir, 0o755)
	os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>test</html>"), 0o644)
	os.WriteFile(filepath.Join(jsDir, "main.js"), []byte("// test"), 0o644)

	db := openTestDB(t)
	hub := NewHub(testConfig(), db, sim.DefaultCatalog())
	go hub.Run()

	srv := httptest.NewServer(SetupRoutes(hub, tmpDir))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	return srv, wsURL, hub, func() {
		srv.Close()
		hub.Shutdown()
	}
}

// dialWS opens a WebSocket connection to the test server.
func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	return conn
}

// readEnvelope reads the next JSON message, skipping state frames.
func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read WS: %v", err)
		}
		if msgType == websocket.BinaryMessage {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return env
	}
}

// readFrame reads the next msgpack state frame, skipping JSON messages.
func readFrame(t *testing.T, conn *websocket.Conn) StateFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read WS: %v", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		var f StateFrame
		if err := msgpack.Unmarshal(raw, &f); err != nil {
			t.Fatalf("msgpack unmarshal: %v", err)
		}
		return f
	}
}

// sendMsg sends a typed message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	env := Envelope{T: msgType, Data: data}
	raw, _ := json.Marshal(env)
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

// decodeData re-decodes env.Data into v.
func decodeData(t *testing.T, env Envelope, v interface{}) {
	t.Helper()
	raw, _ := json.Marshal(env.Data)
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", env.T, err)
	}
}

// expect reads the next JSON message and checks its type.
func expect(t *testing.T, conn *websocket.Conn, msgType string) Envelope {
	t.Helper()
	env := readEnvelope(t, conn)
	if env.T != msgType {
		t.Fatalf("expected %s, got %s (%v)", msgType, env.T, env.Data)
	}
	return env
}

// startRun starts a guest run and returns the guest identity and run.
func startRun(t *testing.T, conn *websocket.Conn) (AuthOKMsg, RunStartedMsg) {
	t.Helper()
	sendMsg(t, conn, MsgNewRun, nil)
	var auth AuthOKMsg
	decodeData(t, expect(t, conn, MsgAuthOK), &auth)
	var run RunStartedMsg
	decodeData(t, expect(t, conn, MsgRunStarted), &run)
	return auth, run
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var m map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&m)
	return resp, m
}

// ---------- UUID generation tests ----------

func TestGenerateUUIDFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		id := GenerateUUID()
		if !uuidRegex.MatchString(id) {
			t.Errorf("GenerateUUID() = %q, does not match UUID v4 format", id)
		}
	}
}

func TestGenerateUUIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateUUID()
		if seen[id] {
			t.Fatalf("duplicate UUID generated: %s", id)
		}
		seen[id] = true
	}
}

// ---------- SPA routing ----------

func TestSPARoutingRoot(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("GET / status = %d, want 200", resp.StatusCode)
	}
}

func TestSPARoutingUUIDPath(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t)
	defer cleanup()

	id := GenerateUUID()
	resp, err := http.Get(srv.URL + "/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("GET /%s status = %d, want 200", id, resp.StatusCode)
	}
	buf := make([]byte, 100)
	n, _ := resp.Body.Read(buf)
	if body := string(buf[:n]); !strings.Contains(body, "<html>") {
		t.Errorf("UUID path should serve index.html, got %q", body)
	}
}

func TestSPARoutingStaticFiles(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/js/main.js")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("GET /js/main.js status = %d, want 200", resp.StatusCode)
	}
}

func TestSPARoutingNonUUIDPath(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL + "/not-a-uuid")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("GET /not-a-uuid status = %d, want 404", resp.StatusCode)
	}
}

// ---------- REST API ----------

func TestHealth(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t)
	defer cleanup()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	if resp.StatusCode != 200 || body["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t)
	defer cleanup()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/catalog", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["defaultShip"] != "vanguard" {
		t.Errorf("defaultShip = %v", body["defaultShip"])
	}
	if ups, _ := body["upgrades"].([]interface{}); len(ups) != len(sim.DefaultCatalog().Upgrades) {
		t.Errorf("upgrades = %d entries", len(ups))
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t)
	defer cleanup()

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/profile", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/shop/upgrade", "garbage", map[string]string{"id": "hull_plating"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestShopFlow(t *testing.T) {
	srv, _, hub, cleanup := startTestServer(t)
	defer cleanup()

	resp, guest := doJSON(t, http.MethodPost, srv.URL+"/api/auth/guest", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("guest status = %d", resp.StatusCode)
	}
	token := guest["token"].(string)
	pid := int64(guest["pid"].(float64))

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/shop/upgrade", token, map[string]string{"id": "hull_plating"})
	if resp.StatusCode != http.StatusBadRequest || body["error"] != sim.PurchaseUnaffordable.String() {
		t.Errorf("broke purchase = %d %v", resp.StatusCode, body)
	}

	hub.profiles.Update(pid, func(p *persist.Profile) error {
		p.Fragments = 1000
		return nil
	})

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/shop/upgrade", token, map[string]string{"id": "hull_plating"})
	if resp.StatusCode != 200 {
		t.Fatalf("purchase = %d %v", resp.StatusCode, body)
	}
	if body["fragments"].(float64) != 950 {
		t.Errorf("fragments = %v, want 950", body["fragments"])
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/shop/select", token, map[string]string{"ship": "striker"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("selecting a locked ship = %d, want 400", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/shop/unlock", token, map[string]string{"ship": "striker"})
	if resp.StatusCode != 200 {
		t.Errorf("unlock = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/shop/ship-level", token, map[string]string{"ship": "striker"})
	if resp.StatusCode != 200 {
		t.Errorf("ship-level = %d", resp.StatusCode)
	}
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/shop/select", token, map[string]string{"ship": "striker"})
	if resp.StatusCode != 200 || body["selectedShip"] != "striker" {
		t.Errorf("select = %d %v", resp.StatusCode, body)
	}

	p := hub.profiles.Get(pid)
	// 1000 - 50 upgrade - 500 unlock - 100 level
	if p.Fragments != 350 || p.ShipLevel("striker") != 2 || p.OwnedUpgrades["hull_plating"] != 1 {
		t.Errorf("stored profile = %+v", p)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/profile", token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("profile = %d", resp.StatusCode)
	}
	prof := body["profile"].(map[string]interface{})
	if prof["selectedShip"] != "striker" {
		t.Errorf("profile selectedShip = %v", prof["selectedShip"])
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/shop/refund", token, nil)
	if resp.StatusCode != 200 || body["fragments"].(float64) != 400 {
		t.Errorf("refund = %d %v", resp.StatusCode, body)
	}
}

func TestRegisterLoginREST(t *testing.T) {
	srv, _, _, cleanup := startTestServer(t)
	defer cleanup()

	creds := map[string]string{"username": "ace", "password": "hunter2"}
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "", creds)
	if resp.StatusCode != 200 || body["username"] != "ace" {
		t.Fatalf("register = %d %v", resp.StatusCode, body)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/auth/register", "", creds)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate register = %d", resp.StatusCode)
	}
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", creds)
	if resp.StatusCode != 200 || body["token"] == "" {
		t.Errorf("login = %d %v", resp.StatusCode, body)
	}
}

// ---------- WebSocket runs ----------

func TestNewRunOverWebSocket(t *testing.T) {
	_, wsURL, _, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()

	auth, run := startRun(t, conn)
	if auth.Token == "" || !auth.Guest || auth.PlayerID == 0 {
		t.Errorf("guest auth = %+v", auth)
	}
	if !uuidRegex.MatchString(run.ID) {
		t.Errorf("run ID %q is not a UUID", run.ID)
	}
	if run.Ship != "vanguard" || run.ShipLevel != 1 || run.Stats.MaxHP != 100 {
		t.Errorf("run started = %+v", run)
	}

	f := readFrame(t, conn)
	if f.Player.HP != 100 || f.Player.Ship != "vanguard" {
		t.Errorf("first frame player = %+v", f.Player)
	}
}

func TestActionsRequireRun(t *testing.T) {
	_, wsURL, _, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()

	sendMsg(t, conn, MsgDash, nil)
	var e ErrorMsg
	decodeData(t, expect(t, conn, MsgError), &e)
	if e.Msg != "no active run" {
		t.Errorf("error = %q", e.Msg)
	}
}

func TestRunDamageAndDash(t *testing.T) {
	_, wsURL, _, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()
	startRun(t, conn)

	sendMsg(t, conn, MsgHit, HitMsg{Amount: 30})

	deadline := time.Now().Add(2 * time.Second)
	var sawNumber, sawCue bool
	for time.Now().Before(deadline) {
		f := readFrame(t, conn)
		for _, n := range f.Damage {
			if n.Damage == 30 && n.IsPlayerDamage {
				sawNumber = true
			}
		}
		for _, c := range f.Cues {
			if c == "sfx_player_hit" {
				sawCue = true
			}
		}
		if f.Player.HP == 70 && sawNumber && sawCue {
			break
		}
	}
	if !sawNumber || !sawCue {
		t.Errorf("damage number %v, hit cue %v", sawNumber, sawCue)
	}

	sendMsg(t, conn, MsgDash, nil)
	var res ResultMsg
	decodeData(t, expect(t, conn, MsgResult), &res)
	if res.Action != MsgDash || !res.OK {
		t.Errorf("dash result = %+v", res)
	}

	sendMsg(t, conn, MsgGod, GodMsg{On: true})
	decodeData(t, expect(t, conn, MsgResult), &res)
	if res.OK || res.Reason != "disabled" {
		t.Errorf("god mode should be disabled by default, got %+v", res)
	}
}

func TestEndRunBanksFragments(t *testing.T) {
	_, wsURL, hub, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()
	auth, _ := startRun(t, conn)

	sendMsg(t, conn, MsgCollect, CollectMsg{XP: 10, Fragments: 120})
	var res ResultMsg
	decodeData(t, expect(t, conn, MsgResult), &res)
	if !res.OK || res.Value != 120 {
		t.Errorf("collect = %+v", res)
	}

	sendMsg(t, conn, MsgEndRun, nil)
	var ended RunEndedMsg
	decodeData(t, expect(t, conn, MsgRunEnded), &ended)
	if ended.Banked != 120 || ended.Bank != 120 || ended.BestLevel != 1 {
		t.Errorf("run ended = %+v", ended)
	}
	if len(ended.Achievements) != 1 || ended.Achievements[0] != "first_flight" {
		t.Errorf("achievements = %v", ended.Achievements)
	}

	p := hub.profiles.Get(auth.PlayerID)
	if p.Fragments != 120 || p.Runs != 1 {
		t.Errorf("profile after run = %+v", p)
	}
	runs, err := hub.db.GetRunHistory(auth.PlayerID, 10)
	if err != nil || len(runs) != 1 || runs[0].Fragments != 120 {
		t.Errorf("run history = %+v, %v", runs, err)
	}

	sendMsg(t, conn, MsgDash, nil)
	expect(t, conn, MsgError)
}

func TestShopPurchaseDuringRun(t *testing.T) {
	srv, wsURL, hub, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()
	auth, run := startRun(t, conn)

	hub.profiles.Update(auth.PlayerID, func(p *persist.Profile) error {
		p.Fragments = 1000
		return nil
	})
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/shop/upgrade", auth.Token, map[string]string{"id": "hull_plating"})
	if resp.StatusCode != 200 {
		t.Fatalf("shop purchase = %d %v", resp.StatusCode, body)
	}

	sendMsg(t, conn, MsgCollect, CollectMsg{Fragments: 100})
	expect(t, conn, MsgResult)

	sendMsg(t, conn, MsgBuyUpgrade, BuyUpgradeMsg{ID: "hull_plating"})
	var res ResultMsg
	decodeData(t, expect(t, conn, MsgResult), &res)
	if res.OK || res.Reason != sim.PurchaseOwned.String() {
		t.Errorf("in-run purchase = %+v", res)
	}

	r := hub.runs.Get(run.ID)
	if r == nil {
		t.Fatal("run not live")
	}
	if got := r.Snapshot().Fragments; got != 100 {
		t.Errorf("run fragments = %d, want 100", got)
	}
	p := hub.profiles.Get(auth.PlayerID)
	if p.Fragments != 950 || p.OwnedUpgrades["hull_plating"] != 1 {
		t.Errorf("profile = %+v", p)
	}
}

func TestBinaryInput(t *testing.T) {
	_, wsURL, _, cleanup := startTestServer(t)
	defer cleanup()

	conn := dialWS(t, wsURL)
	defer conn.Close()
	startRun(t, conn)

	// right + aim at (5, -2.5)
	ax, az := int16(500), int16(-250)
	frame := []byte{binaryInputTag, flagRight | flagAim, byte(uint16(ax) >> 8), byte(uint16(ax)), byte(uint16(az) >> 8), byte(uint16(az))}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f := readFrame(t, conn)
		if f.Player.X > 0 && f.Player.Aiming {
			return
		}
	}
	t.Error("ship never moved right while aiming")
}
