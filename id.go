package wsclient

import "github.com/nats-io/nuid"

// genID returns a short, fast, collision-resistant identifier used to tag
// a Conn and each of its reconnect generations in logs and error events.
// It carries no security meaning; it exists purely for correlating log
// lines across a connection's lifetime.
func genID() string {
	return nuid.Next()
}
