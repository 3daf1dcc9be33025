package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/crossex/cross/internal/accounts"
	"github.com/crossex/cross/internal/logger"
	"github.com/crossex/cross/internal/types"
)

const maxFrameSize = 1 << 20

// session is one client connection: a line-framed JSON request loop
// with per-connection login state. All trading effects go through the
// shared Exchange; the session only tracks who is speaking.
type session struct {
	server *Server
	conn   net.Conn
	enc    *json.Encoder
	user   string // empty until login succeeds
}

func newSession(s *Server, conn net.Conn) *session {
	return &session{
		server: s,
		conn:   conn,
		enc:    json.NewEncoder(conn),
	}
}

// run reads frames until the client disconnects, the idle timeout
// expires or the server shuts down. Session state is always released on
// the way out, so a dropped connection behaves like a logout.
func (sess *session) run() {
	defer func() {
		sess.logoutLocked()
		sess.server.dropSession(sess)
		sess.conn.Close()
	}()

	scanner := bufio.NewScanner(sess.conn)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)

	for {
		if sess.server.cfg.SocketTimeout > 0 {
			sess.conn.SetReadDeadline(time.Now().Add(sess.server.cfg.SocketTimeout))
		}
		if !scanner.Scan() {
			return
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			sess.reply(NewCodeResponse(types.CodeMalformed, "malformed request"))
			continue
		}
		sess.dispatch(&req)
	}
}

func (sess *session) reply(v interface{}) {
	if err := sess.enc.Encode(v); err != nil {
		logger.Debug("reply write failed", map[string]interface{}{
			"remote": sess.conn.RemoteAddr().String(),
			"error":  err.Error(),
		})
	}
}

func (sess *session) dispatch(req *Request) {
	switch req.Operation {
	case "login":
		sess.handleLogin(req.Values)
	case "logout":
		sess.handleLogout()
	case "updateCredentials":
		sess.handleUpdateCredentials(req.Values)
	case "insertLimitOrder":
		sess.handleInsertLimit(req.Values)
	case "insertMarketOrder":
		sess.handleInsertMarket(req.Values)
	case "insertStopOrder":
		sess.handleInsertStop(req.Values)
	case "cancelOrder":
		sess.handleCancel(req.Values)
	case "getPriceHistory":
		sess.handlePriceHistory(req.Values)
	case "registerPriceAlert":
		sess.handlePriceAlert(req.Values)
	default:
		sess.reply(NewCodeResponse(types.CodeMalformed, "unknown operation"))
	}
}

func (sess *session) handleLogin(raw json.RawMessage) {
	var v loginValues
	if err := json.Unmarshal(raw, &v); err != nil || v.Username == "" || v.Password == "" {
		sess.reply(NewCodeResponse(types.CodeMalformed, "malformed login request"))
		return
	}
	if v.UDPPort <= 0 || v.UDPPort > 65535 {
		sess.reply(NewCodeResponse(types.CodeMalformed, "invalid udpPort"))
		return
	}
	if sess.user != "" {
		sess.reply(NewCodeResponse(types.CodeUserConflict, "session already logged in"))
		return
	}

	if err := sess.server.accounts.Validate(v.Username, v.Password); err != nil {
		switch {
		case errors.Is(err, accounts.ErrUnknownUser):
			sess.reply(NewCodeResponse(types.CodeUserConflict, "unknown user"))
		default:
			sess.reply(NewCodeResponse(types.CodeNotAuthorized, "invalid credentials"))
		}
		return
	}

	if !sess.server.bindUser(v.Username, sess) {
		sess.reply(NewCodeResponse(types.CodeUserConflict, "user already logged in"))
		return
	}
	sess.user = v.Username

	// Fills go back to the client's address over the UDP port it chose
	addr := &net.UDPAddr{Port: v.UDPPort}
	if tcpAddr, ok := sess.conn.RemoteAddr().(*net.TCPAddr); ok {
		addr.IP = tcpAddr.IP
	}
	sess.server.exchange.RegisterNotify(v.Username, addr)

	logger.Info("user logged in", map[string]interface{}{
		"user":   v.Username,
		"remote": sess.conn.RemoteAddr().String(),
	})
	sess.reply(NewCodeResponse(types.CodeOK, "ok"))
}

func (sess *session) handleLogout() {
	if sess.user == "" {
		sess.reply(NewCodeResponse(types.CodeNotAuthorized, "not logged in"))
		return
	}
	sess.logoutLocked()
	sess.reply(NewCodeResponse(types.CodeOK, "ok"))
}

// logoutLocked releases the login and every per-user registration.
// Resting orders survive a logout.
func (sess *session) logoutLocked() {
	if sess.user == "" {
		return
	}
	sess.server.exchange.DropUser(sess.user)
	sess.server.releaseUser(sess.user, sess)
	logger.Info("user logged out", map[string]interface{}{
		"user": sess.user,
	})
	sess.user = ""
}

func (sess *session) handleUpdateCredentials(raw json.RawMessage) {
	var v updateCredentialsValues
	if err := json.Unmarshal(raw, &v); err != nil || v.Username == "" || v.OldPassword == "" || v.NewPassword == "" {
		sess.reply(NewCodeResponse(types.CodeMalformed, "malformed request"))
		return
	}
	if sess.server.userLoggedIn(v.Username) {
		sess.reply(NewCodeResponse(types.CodeUserLoggedIn, "user currently logged in"))
		return
	}

	err := sess.server.accounts.UpdatePassword(v.Username, v.OldPassword, v.NewPassword)
	switch {
	case err == nil:
		sess.reply(NewCodeResponse(types.CodeOK, "ok"))
	case errors.Is(err, accounts.ErrUnknownUser), errors.Is(err, accounts.ErrBadCredentials):
		sess.reply(NewCodeResponse(types.CodeUserConflict, "invalid username or password"))
	case errors.Is(err, accounts.ErrSamePassword):
		sess.reply(NewCodeResponse(types.CodeCredentialsErr, "new password must differ"))
	default:
		sess.reply(NewCodeResponse(types.CodeCredentialsErr, "credential update failed"))
	}
}

func (sess *session) handleInsertLimit(raw json.RawMessage) {
	if sess.user == "" {
		sess.reply(&OrderResponse{OrderID: types.InvalidOrderID})
		return
	}
	var v limitOrderValues
	if err := json.Unmarshal(raw, &v); err != nil {
		sess.reply(&OrderResponse{OrderID: types.InvalidOrderID})
		return
	}
	side := types.ParseSide(v.Type)
	sess.reply(&OrderResponse{OrderID: sess.server.exchange.InsertLimit(sess.user, side, v.Size, v.Price)})
}

func (sess *session) handleInsertMarket(raw json.RawMessage) {
	if sess.user == "" {
		sess.reply(&OrderResponse{OrderID: types.InvalidOrderID})
		return
	}
	var v marketOrderValues
	if err := json.Unmarshal(raw, &v); err != nil {
		sess.reply(&OrderResponse{OrderID: types.InvalidOrderID})
		return
	}
	side := types.ParseSide(v.Type)
	sess.reply(&OrderResponse{OrderID: sess.server.exchange.InsertMarket(sess.user, side, v.Size)})
}

func (sess *session) handleInsertStop(raw json.RawMessage) {
	if sess.user == "" {
		sess.reply(&OrderResponse{OrderID: types.InvalidOrderID})
		return
	}
	var v stopOrderValues
	if err := json.Unmarshal(raw, &v); err != nil {
		sess.reply(&OrderResponse{OrderID: types.InvalidOrderID})
		return
	}
	side := types.ParseSide(v.Type)
	sess.reply(&OrderResponse{OrderID: sess.server.exchange.InsertStop(sess.user, side, v.Size, v.Price)})
}

func (sess *session) handleCancel(raw json.RawMessage) {
	if sess.user == "" {
		sess.reply(NewCodeResponse(types.CodeNotAuthorized, "not logged in"))
		return
	}
	var v cancelOrderValues
	if err := json.Unmarshal(raw, &v); err != nil {
		sess.reply(NewCodeResponse(types.CodeMalformed, "malformed request"))
		return
	}
	if v.OrderID < 0 {
		sess.reply(NewCodeResponse(types.CodeNotAuthorized, "order does not exist"))
		return
	}

	code := sess.server.exchange.Cancel(sess.user, uint64(v.OrderID))
	if code == types.CodeOK {
		sess.reply(NewCodeResponse(types.CodeOK, "ok"))
	} else {
		sess.reply(NewCodeResponse(code, "order cannot be cancelled"))
	}
}

func (sess *session) handlePriceHistory(raw json.RawMessage) {
	if sess.user == "" {
		sess.reply(NewCodeResponse(types.CodeNotAuthorized, "not logged in"))
		return
	}
	var v priceHistoryValues
	if err := json.Unmarshal(raw, &v); err != nil {
		sess.reply(NewCodeResponse(types.CodeMalformed, "malformed request"))
		return
	}

	summary, err := sess.server.exchange.PriceHistory(v.Month)
	if err != nil {
		sess.reply(NewCodeResponse(types.CodeMalformed, err.Error()))
		return
	}
	sess.reply(summary)
}

func (sess *session) handlePriceAlert(raw json.RawMessage) {
	if sess.user == "" {
		sess.reply(&PriceAlertResponse{Response: types.CodeNotAuthorized, ErrorMessage: "not logged in"})
		return
	}
	var v priceAlertValues
	if err := json.Unmarshal(raw, &v); err != nil {
		sess.reply(&PriceAlertResponse{Response: types.CodeMalformed, ErrorMessage: "malformed request"})
		return
	}

	if !sess.server.exchange.RegisterPriceAlert(sess.user, v.ThresholdPrice) {
		sess.reply(&PriceAlertResponse{
			Response:     types.CodeNotAuthorized,
			ErrorMessage: "threshold must be above the current market price",
		})
		return
	}

	sess.reply(&PriceAlertResponse{
		Response: types.CodeOK,
		MulticastInfo: &MulticastInfo{
			MulticastAddress: sess.server.cfg.MulticastAddress,
			MulticastPort:    sess.server.cfg.MulticastPort,
			ActiveUsers:      sess.server.exchange.ActiveUsers(),
		},
	})
}
