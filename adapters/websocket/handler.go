package websocket

import (
	"github.com/labstack/echo/v4"
)

// Handler upgrades the request and keeps the connection in the hub until the
// client goes away. Expects the auth middleware to have set user_id.
func (s *Server) Handler(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	userID := c.Get("user_id").(string)

	client := NewClient(conn, userID)
	s.hub.Register(client)
	client.Run()
	defer s.hub.Unregister(client)

	<-client.Context().Done()

	return nil
}
