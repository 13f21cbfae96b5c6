package socket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// GorillaDialer returns the production Dialer. The auth token travels in
// the "token" header of the upgrade request, which is what the server
// checks before accepting the connection.
func GorillaDialer(timeout time.Duration) Dialer {
	return func(ctx context.Context, url, token string) (Conn, error) {
		d := websocket.Dialer{
			HandshakeTimeout: timeout,
		}

		header := http.Header{}
		header.Set("token", token)

		conn, resp, err := d.DialContext(ctx, url, header)
		if err != nil {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			return nil, err
		}
		return conn, nil
	}
}
