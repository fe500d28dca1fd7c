package handlers

import "github.com/gin-gonic/gin"

// claimStrings pulls the subject and email out of the verified claims the
// auth middleware stashed on the context. Empty strings mean no (usable)
// claims were present.
func claimStrings(c *gin.Context) (sub, email string) {
	v, ok := c.Get("claims")
	if !ok {
		return "", ""
	}
	cm, ok := v.(map[string]interface{})
	if !ok {
		return "", ""
	}
	sub, _ = cm["sub"].(string)
	email, _ = cm["email"].(string)
	return sub, email
}
