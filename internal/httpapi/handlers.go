package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"sketchguess/internal/game"
	"sketchguess/internal/words"
)

// Server wires the game manager and the websocket hub into gin routes.
type Server struct {
	mgr     *game.Manager
	hub     *Hub
	log     zerolog.Logger
	joinURL string // base URL encoded into join QR codes
	roomTTL time.Duration
}

func NewServer(mgr *game.Manager, hub *Hub, log zerolog.Logger, joinURL string, roomTTL time.Duration) *Server {
	return &Server{mgr: mgr, hub: hub, log: log, joinURL: joinURL, roomTTL: roomTTL}
}

// Router builds the gin engine with CORS and all API routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		api.POST("/games", s.createGame)
		api.GET("/games/:roomId", s.getGame)
		api.GET("/games/:roomId/qr", s.joinQR)
		api.POST("/games/:roomId/join", s.joinGame)
		api.POST("/games/:roomId/start", s.startGame)
		api.POST("/games/:roomId/select-word", s.selectWord)
		api.POST("/games/:roomId/draw", s.updateDrawing)
		api.POST("/games/:roomId/guess", s.submitGuess)
		api.POST("/games/:roomId/timeout", s.handleTimeout)
		api.POST("/games/:roomId/leave", s.leaveGame)
		api.POST("/games/:roomId/reconnect", s.reconnect)
		api.POST("/admin/cleanup", s.adminCleanup)
		api.GET("/words/stats", s.wordStats)
	}

	router.GET("/ws/:roomId/:playerId", s.serveWS)

	return router
}

// statusFor maps core errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrRoomNotFound), errors.Is(err, game.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotHost), errors.Is(err, game.ErrNotDrawer), errors.Is(err, game.ErrIsDrawer):
		return http.StatusForbidden
	case errors.Is(err, game.ErrGameInProgress), errors.Is(err, game.ErrRoomFull),
		errors.Is(err, game.ErrNameTaken), errors.Is(err, game.ErrAlreadyGuessed),
		errors.Is(err, game.ErrWrongPhase), errors.Is(err, game.ErrNotEnoughPlayers),
		errors.Is(err, game.ErrStaleSnapshot):
		return http.StatusConflict
	case errors.Is(err, game.ErrBadWordIndex), errors.Is(err, game.ErrUnknownUpdateKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// roomID validates the :roomId path parameter up front; the core defends
// against unknown IDs anyway, but malformed ones never reach it.
func roomID(c *gin.Context) (string, bool) {
	id := c.Param("roomId")
	if !validRoomID(id) {
		badRequest(c, "invalid room ID format")
		return "", false
	}
	return id, true
}

func (s *Server) createGame(c *gin.Context) {
	var req struct {
		PlayerName string        `json:"playerName"`
		Settings   game.Settings `json:"settings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := validateName(req.PlayerName); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := validateSettings(req.Settings); err != nil {
		badRequest(c, err.Error())
		return
	}

	roomID, playerID, view, err := s.mgr.CreateGame(req.PlayerName, req.Settings)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"roomId":    roomID,
		"playerId":  playerID,
		"gameState": view,
	})
}

func (s *Server) getGame(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	view, err := s.mgr.GetViewModel(id, c.Query("playerId"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gameState": view})
}

func (s *Server) joinGame(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var req struct {
		PlayerName string `json:"playerName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := validateName(req.PlayerName); err != nil {
		badRequest(c, err.Error())
		return
	}

	playerID, view, err := s.mgr.JoinGame(id, req.PlayerName)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "playerId": playerID, "gameState": view})
}

func (s *Server) startGame(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PlayerID == "" {
		badRequest(c, "player ID is required")
		return
	}

	view, err := s.mgr.StartGame(id, req.PlayerID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gameState": view})
}

func (s *Server) selectWord(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var req struct {
		PlayerID  string `json:"playerId"`
		WordIndex *int   `json:"wordIndex"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PlayerID == "" {
		badRequest(c, "player ID is required")
		return
	}
	if req.WordIndex == nil || *req.WordIndex < 0 || *req.WordIndex >= game.WordChoiceCount {
		badRequest(c, fmt.Sprintf("word index must be between 0 and %d", game.WordChoiceCount-1))
		return
	}

	view, err := s.mgr.SelectWord(id, req.PlayerID, *req.WordIndex)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gameState": view})
}

func (s *Server) updateDrawing(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var req struct {
		PlayerID string             `json:"playerId"`
		Update   game.DrawingUpdate `json:"update"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PlayerID == "" {
		badRequest(c, "player ID is required")
		return
	}

	view, err := s.mgr.UpdateDrawing(id, req.PlayerID, req.Update)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gameState": view})
}

func (s *Server) submitGuess(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var req struct {
		PlayerID string `json:"playerId"`
		Guess    string `json:"guess"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PlayerID == "" {
		badRequest(c, "player ID is required")
		return
	}
	if req.Guess == "" {
		badRequest(c, "guess is required")
		return
	}

	res, view, err := s.mgr.SubmitGuess(id, req.PlayerID, req.Guess)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"isCorrect": res.Correct,
		"isClose":   res.Close,
		"gameState": view,
	})
}

func (s *Server) handleTimeout(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	view, err := s.mgr.HandleTimeout(id)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gameState": view})
}

func (s *Server) leaveGame(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PlayerID == "" {
		badRequest(c, "player ID is required")
		return
	}

	if err := s.mgr.LeaveGame(id, req.PlayerID); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) reconnect(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PlayerID == "" {
		badRequest(c, "player ID is required")
		return
	}

	view, err := s.mgr.SetOnline(id, req.PlayerID, true)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "gameState": view})
}

func (s *Server) adminCleanup(c *gin.Context) {
	removed := s.mgr.SweepInactive(s.roomTTL)
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}

func (s *Server) wordStats(c *gin.Context) {
	c.JSON(http.StatusOK, words.Stats())
}

// joinQR renders a QR code PNG pointing at the room's join page.
func (s *Server) joinQR(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	if _, err := s.mgr.GetViewModel(id, ""); err != nil {
		abortWith(c, err)
		return
	}

	png, err := qrcode.Encode(fmt.Sprintf("%s/join?roomId=%s", s.joinURL, id), qrcode.Medium, 256)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// serveWS upgrades the connection, marks the player online and streams
// state pushes until the socket drops, which marks them offline again.
func (s *Server) serveWS(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	playerID := c.Param("playerId")

	if _, err := s.mgr.GetViewModel(id, playerID); err != nil {
		abortWith(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error().Err(err).Str("room", id).Msg("websocket upgrade failed")
		return
	}

	client := s.hub.attach(id, playerID, conn)
	go client.writePump()

	// SetOnline republishes, which doubles as the initial state frame.
	_, _ = s.mgr.SetOnline(id, playerID, true)

	// Inbound frames are ignored: all actions arrive over the REST API.
	// Reading still drives close detection and pong handling.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// A replacement socket may have displaced this one; only the connection
	// still registered for the player may mark them offline.
	if s.hub.detach(id, playerID, client) {
		_, _ = s.mgr.SetOnline(id, playerID, false)
	}
}
