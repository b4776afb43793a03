package client

// Backend API paths.
const (
	PathHealth        = "/api/health"
	PathPosts         = "/api/posts"
	PathSessions      = "/api/sessions"
	PathBreakoutRooms = "/api/breakout-rooms"
	PathAdmin         = "/api/admin"
)
