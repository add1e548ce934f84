package wsclient

import (
	"bytes"
	"encoding/json"
	"net/url"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// uriEncode/uriDecode implement a "URI-component encode/decode"
// knob using the standard library's closest analogue to encodeURIComponent
// / decodeURIComponent.
func uriEncode(s string) string  { return url.QueryEscape(s) }
func uriDecode(s string) (string, error) { return url.QueryUnescape(s) }

// deliverMessage implements spec §4.6: given a complete message body and
// the configured payload kind, decode it and emit a message event (or, in
// json mode, silently drop a malformed body — documented observed
// behavior, see SPEC_FULL.md §5.9).
func (c *Conn) deliverMessage(opcode opCode, body []byte) {
	switch opcode {
	case opBinary:
		c.events.EmitMessage(append([]byte(nil), body...))
		return
	case opText:
		// fallthrough to text/json handling below
	default:
		c.cfg.Logger.Warnf("dropping message with unexpected opcode %d", opcode)
		return
	}

	switch c.cfg.Kind {
	case KindBinary, KindBuffer:
		c.events.EmitMessage(append([]byte(nil), body...))
		return
	}

	if !utf8.Valid(body) {
		c.cfg.Logger.Debugf("dropping message: invalid utf-8")
		return
	}
	text := string(body)

	if c.cfg.EncodeDecode {
		if decoded, err := uriDecode(text); err == nil {
			text = decoded
		}
	}
	if c.cfg.Encryptor != nil {
		plain, err := c.cfg.Encryptor.Decrypt([]byte(text))
		if err != nil {
			c.cfg.Logger.Debugf("dropping message: decrypt failed: %v", err)
			return
		}
		text = string(plain)
	}

	switch c.cfg.Kind {
	case KindJSON:
		if !json.Valid([]byte(text)) {
			// §4.6: malformed JSON is silently dropped, no message or
			// error event. Matches observed source behavior.
			return
		}
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return
		}
		c.events.EmitMessage(v)
	default: // KindText
		c.events.EmitMessage(text)
	}
}

// encodeOutbound implements spec §4.7's send-side encoding chain:
// JSON-stringify (json mode, unless raw) or string coercion, then
// encryption, then URI-encoding, producing the bytes that go into the
// frame (or deflate queue).
func (c *Conn) encodeOutbound(payload any, raw bool, replacer func(key string, value any) any) ([]byte, opCode, error) {
	switch c.cfg.Kind {
	case KindBinary, KindBuffer:
		b, err := toBytes(payload)
		if err != nil {
			return nil, opBinary, err
		}
		return b, opBinary, nil
	}

	var text string
	switch {
	case c.cfg.Kind == KindJSON && !raw:
		b, err := marshalJSON(payload, replacer)
		if err != nil {
			return nil, opText, errors.Wrap(err, "wsclient: marshal json payload")
		}
		text = string(b)
	default:
		if s, ok := payload.(string); ok {
			text = s
		} else if isStringable(payload) {
			b, err := marshalJSON(payload, replacer)
			if err != nil {
				return nil, opText, errors.Wrap(err, "wsclient: marshal payload")
			}
			text = string(b)
		} else {
			text = toString(payload)
		}
	}

	if c.cfg.Encryptor != nil {
		enc, err := c.cfg.Encryptor.Encrypt([]byte(text))
		if err != nil {
			return nil, opText, errors.Wrap(err, "wsclient: encrypt payload")
		}
		text = string(enc)
	}
	if c.cfg.EncodeDecode {
		text = uriEncode(text)
	}
	return []byte(text), opText, nil
}

// marshalJSON mirrors JSON.stringify(value, replacer): when replacer is
// set, every field of a marshaled map is passed through it first.
func marshalJSON(v any, replacer func(string, any) any) ([]byte, error) {
	if replacer == nil {
		return json.Marshal(v)
	}
	transformed, err := applyReplacer("", v, replacer)
	if err != nil {
		return nil, err
	}
	return json.Marshal(transformed)
}

func applyReplacer(key string, v any, replacer func(string, any) any) (any, error) {
	v = replacer(key, v)
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			nv, err := applyReplacer(k, val, replacer)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			nv, err := applyReplacer("", val, replacer)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return v, nil
	}
}

func toBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, errors.Errorf("wsclient: cannot send %T as binary payload", v)
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case fmtStringer:
		return t.String()
	default:
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(t)
		return string(bytes.TrimRight(buf.Bytes(), "\n"))
	}
}

type fmtStringer interface{ String() string }

// isStringable reports whether v is a composite type that should be
// JSON-stringified rather than coerced with fmt-style formatting, mirroring
// the source's "non-string object" check.
func isStringable(v any) bool {
	switch v.(type) {
	case nil, string, []byte:
		return false
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return false
	default:
		return true
	}
}
