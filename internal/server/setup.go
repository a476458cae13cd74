package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meetwatch/meetwatch-agent/config"
)

// SetupHandlers serve the first-run flow when no API key is configured yet.
type SetupHandlers struct {
	cfg *config.Config
}

// NewSetupHandlers creates setup handlers
func NewSetupHandlers(cfg *config.Config) *SetupHandlers {
	return &SetupHandlers{cfg: cfg}
}

const setupPage = `<!DOCTYPE html>
<html>
<head><title>meetwatch-agent setup</title></head>
<body>
<h1>meetwatch-agent</h1>
<p>No API key is configured. Generate one and save it, then restart the agent to enable authentication.</p>
<button onclick="generate()">Generate API key</button>
<pre id="key"></pre>
<button onclick="save()">Save</button>
<script>
let apiKey = "";
async function generate() {
  const res = await fetch("/setup/generate", {method: "POST"});
  const body = await res.json();
  apiKey = body.api_key;
  document.getElementById("key").textContent = apiKey;
}
async function save() {
  if (!apiKey) return;
  await fetch("/setup/save", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({api_key: apiKey}),
  });
  document.body.innerHTML = "<p>Saved. Restart the agent.</p>";
}
</script>
</body>
</html>`

// SetupPage handles GET /setup
func (h *SetupHandlers) SetupPage(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, setupPage)
}

// GenerateKey handles POST /setup/generate
func (h *SetupHandlers) GenerateKey(c *gin.Context) {
	key, err := config.GenerateAPIKey()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"api_key": key})
}

// SaveKey handles POST /setup/save
func (h *SetupHandlers) SaveKey(c *gin.Context) {
	var req struct {
		APIKey string `json:"api_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_key is required"})
		return
	}

	if err := h.cfg.SaveAPIKey(req.APIKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"saved":   true,
		"message": "restart the agent to enable authentication",
	})
}
