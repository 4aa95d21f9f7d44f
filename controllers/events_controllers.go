package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/DadDubz/wine-service-app/events"
	"github.com/DadDubz/wine-service-app/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FloorEventsHandler -> koneksi websocket untuk push update meja.
// Pelengkap polling; client tetap konsisten lewat watermark.
func FloorEventsHandler(c *gin.Context) {
	roleVal, _ := c.Get("role")
	role, _ := roleVal.(string)
	if role == "" {
		role = c.Param("role")
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	events.RegisterClient(conn, role)
	go func() {
		defer events.UnregisterClient(conn)
		for {
			// client tidak mengirim apa-apa; baca hanya untuk deteksi close
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
