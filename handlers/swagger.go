package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, swaggerJSON)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>phishbowl-api — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the important endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "phishbowl-api", "version": "v0.1.0" },
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Exchange Google authorization code for session tokens",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"code":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens and user returned" }, "401": { "description": "authentication failed" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/auth/gmail/callback": {
      "get": { "summary": "OAuth redirect target; posts the connection result to the opener window", "responses": { "200": { "description": "HTML page" } } }
    },
    "/api/v1/gmail/connect": {
      "get": { "summary": "Get the Gmail authorization URL", "responses": { "200": { "description": "authorization url" } } }
    },
    "/api/v1/gmail/status": {
      "get": { "summary": "Connection status; ?live=true re-verifies against Google", "responses": { "200": { "description": "connection status" } } }
    },
    "/api/v1/gmail/verify": {
      "post": { "summary": "Verify the connection, optionally with a fresh authorization code", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"code":{"type":"string"}}}}}}, "responses": { "200": { "description": "connection status" } } }
    },
    "/api/v1/gmail/disconnect": {
      "post": { "summary": "Clear the stored Gmail credential and revoke the token", "responses": { "200": { "description": "disconnected" } } }
    },
    "/api/v1/scores": {
      "post": { "summary": "Record a game score", "responses": { "201": { "description": "score saved" } } },
      "get": { "summary": "List the caller's scores", "responses": { "200": { "description": "score list" } } }
    },
    "/api/v1/scores/leaderboard": {
      "get": { "summary": "Top scores", "responses": { "200": { "description": "leaderboard" } } }
    },
    "/api/v1/account": {
      "delete": { "summary": "Erase the caller's account and scores", "responses": { "200": { "description": "erasure result" } } }
    },
    "/api/v1/ai/emails": {
      "post": { "summary": "Generate a training email from a prompt", "responses": { "201": { "description": "draft" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Get user info", "responses": { "200": { "description": "user or claims" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
