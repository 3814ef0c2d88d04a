// Package webhook implements the inbound WhatsApp event receiver (§4.F):
// validate origin, normalize the vendor envelope to domain.Message, drop
// self-sent and group-scope events, and hand accepted messages to the
// buffer. It always answers HTTP 200 — the upstream gateway redelivers on
// anything else, amplifying load under an outage.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/buffer"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/idgen"
)

// Config is the §6 "inbound auth" table.
type Config struct {
	Secret      string   // webhook_secret; empty disables signature checking
	AllowedIPs  []string // webhook_allowlist_ips; empty disables IP filtering
	DefaultDDI  string   // country code prefix applied when a phone has none
}

// Handler implements the gin route for the vendor's webhook POST.
type Handler struct {
	cfg    Config
	buffer *buffer.Buffer
	log    *zap.Logger
	nets   []*net.IPNet
	ips    map[string]bool
}

func New(cfg Config, buf *buffer.Buffer, log *zap.Logger) *Handler {
	h := &Handler{cfg: cfg, buffer: buf, log: log, ips: map[string]bool{}}
	for _, entry := range cfg.AllowedIPs {
		if _, cidr, err := net.ParseCIDR(entry); err == nil {
			h.nets = append(h.nets, cidr)
			continue
		}
		h.ips[entry] = true
	}
	return h
}

// envelope is the vendor's webhook shape (§4.F): a top-level event type plus
// a payload whose fields vary by event. Only fields this receiver actually
// reads are declared; everything else is ignored rather than rejected, so a
// vendor schema addition never breaks ingestion.
type envelope struct {
	Event string `json:"event"`
	Data  struct {
		Key struct {
			ID        string `json:"id"`
			RemoteJID string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
		} `json:"key"`
		PushName         string `json:"pushName"`
		MessageTimestamp int64  `json:"messageTimestamp"`
		Message          struct {
			Conversation string `json:"conversation"`
			ImageMessage *struct {
				Caption string `json:"caption"`
				URL     string `json:"url"`
			} `json:"imageMessage"`
			AudioMessage *struct {
				URL string `json:"url"`
			} `json:"audioMessage"`
			DocumentMessage *struct {
				URL string `json:"url"`
			} `json:"documentMessage"`
		} `json:"message"`
	} `json:"data"`
}

const eventMessagesUpsert = "messages.upsert"

// Handle serves the vendor's webhook POST. Mount with r.POST(path, h.Handle).
func (h *Handler) Handle(c *gin.Context) {
	if !h.authorized(c) {
		h.log.Warn("webhook: rejected unauthorized request", zap.String("remote_addr", c.ClientIP()))
		c.Status(http.StatusOK) // still 200: do not give an attacker a distinguishing signal either
		return
	}

	var env envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		h.log.Warn("webhook: malformed payload", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	if env.Event != eventMessagesUpsert {
		c.Status(http.StatusOK) // CONNECTION_UPDATE/QRCODE_UPDATED/PRESENCE_UPDATE: health state only, not wired here
		return
	}
	if env.Data.Key.FromMe {
		c.Status(http.StatusOK)
		return
	}
	if strings.HasSuffix(env.Data.Key.RemoteJID, "@g.us") {
		c.Status(http.StatusOK) // group-scope: out of scope for 1:1 SDR conversations
		return
	}

	msg := h.toMessage(env)
	if msg == nil {
		c.Status(http.StatusOK)
		return
	}

	h.buffer.Accept(c.Request.Context(), *msg)
	c.Status(http.StatusOK)
}

func (h *Handler) authorized(c *gin.Context) bool {
	if h.cfg.Secret != "" {
		sig := c.GetHeader("X-Webhook-Signature")
		body, err := c.GetRawData()
		if err != nil {
			return false
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		if !validSignature(h.cfg.Secret, body, sig) {
			return false
		}
	}

	if len(h.nets) == 0 && len(h.ips) == 0 {
		return true
	}
	ip := net.ParseIP(c.ClientIP())
	if ip == nil {
		return false
	}
	if h.ips[ip.String()] {
		return true
	}
	for _, cidr := range h.nets {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

func validSignature(secret string, body []byte, sigHeader string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sigHeader))
}

var nonDigits = regexp.MustCompile(`\D`)

// canonicalizePhone strips everything but digits and prefixes the default
// country code when the number looks like a bare local number (§4.F).
func canonicalizePhone(raw, defaultDDI string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if defaultDDI != "" && len(digits) <= 11 {
		digits = defaultDDI + digits
	}
	return digits
}

func (h *Handler) toMessage(env envelope) *domain.Message {
	phone := canonicalizePhone(strings.TrimSuffix(env.Data.Key.RemoteJID, "@s.whatsapp.net"), h.cfg.DefaultDDI)
	if phone == "" {
		return nil
	}

	ts := time.Now()
	if env.Data.MessageTimestamp > 0 {
		ts = time.Unix(env.Data.MessageTimestamp, 0)
	}

	id := env.Data.Key.ID
	if id == "" {
		id = idgen.NewEntityID("msg")
	}

	msg := &domain.Message{
		ID:        id,
		Phone:     phone,
		Direction: domain.DirectionInbound,
		Timestamp: ts,
		MediaType: domain.MediaNone,
	}

	switch {
	case env.Data.Message.Conversation != "":
		msg.Content = env.Data.Message.Conversation
	case env.Data.Message.ImageMessage != nil:
		msg.MediaType = domain.MediaImage
		msg.MediaRef = env.Data.Message.ImageMessage.URL
		msg.Content = env.Data.Message.ImageMessage.Caption
	case env.Data.Message.AudioMessage != nil:
		msg.MediaType = domain.MediaAudio
		msg.MediaRef = env.Data.Message.AudioMessage.URL
	case env.Data.Message.DocumentMessage != nil:
		msg.MediaType = domain.MediaDocument
		msg.MediaRef = env.Data.Message.DocumentMessage.URL
	default:
		return nil // malformed: no recognized content (§7 "Malformed inbound")
	}

	return msg
}

