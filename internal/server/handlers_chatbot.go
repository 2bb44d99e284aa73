package server

import (
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"babyprep/backend/internal/chatbot"
)

// randomTips samples the Tip table and falls back to the embedded tips while it is empty.
func (a *App) randomTips(c *gin.Context) {
	if _, ok := authUserFromContext(c); !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	limit, ok := parseBoundedInt(c.Query("limit"), 3, 1, 10)
	if !ok {
		writeError(c, http.StatusBadRequest, "limit must be between 1 and 10")
		return
	}

	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT content FROM "Tip" ORDER BY random() LIMIT $1`,
		limit,
	)
	if err != nil {
		a.internalError(c, err, "Failed to load tips")
		return
	}
	defer rows.Close()
	tips := []string{}
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			a.internalError(c, err, "Failed to load tips")
			return
		}
		tips = append(tips, content)
	}
	if err := rows.Err(); err != nil {
		a.internalError(c, err, "Failed to load tips")
		return
	}
	if len(tips) == 0 {
		tips = sampleTips(a.catalog.Tips, limit)
	}
	c.JSON(http.StatusOK, gin.H{"tips": tips})
}

func sampleTips(pool []string, limit int) []string {
	shuffled := append([]string(nil), pool...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if len(shuffled) > limit {
		shuffled = shuffled[:limit]
	}
	if shuffled == nil {
		return []string{}
	}
	return shuffled
}

func (a *App) chatbotQuery(c *gin.Context) {
	var payload chatbotRequest
	if !mustJSON(c, &payload) {
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}
	reply, matched := chatbot.Reply(payload.Message, a.catalog.ChatRules())
	c.JSON(http.StatusOK, gin.H{
		"reply":   reply,
		"matched": matched,
	})
}
