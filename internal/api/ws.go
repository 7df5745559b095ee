package api

import (
	"encoding/json"
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/Nucleus-Lab/daocouncil/internal/hub"
)

// websocketHandler subscribes a client to one debate's event stream. There
// is no replay: a client connecting after an event fired fetches durable
// state (messages, juror results) through the regular endpoints.
func (a *API) websocketHandler() http.Handler {
	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		defer conn.Close()

		debateID := conn.Request().PathValue("id")
		observer := hub.NewObserver(json.NewEncoder(conn))

		a.svc.Hub().Connect(debateID, observer)
		defer a.svc.Hub().Disconnect(debateID, observer)

		// Hold the connection open, discarding anything the client sends,
		// until it goes away.
		decoder := json.NewDecoder(conn)
		for {
			var discard json.RawMessage
			if err := decoder.Decode(&discard); err != nil {
				return
			}
		}
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.svc.GetDebate(r.PathValue("id")); err != nil {
			a.writeError(w, "subscribing", err)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
}
