package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/oncall-rota-go/pkg/models"
	"github.com/arnavshah/oncall-rota-go/pkg/scheduler"
)

// ValidateInput handles the JSON-based validation request: structural checks
// on the rosters and month, then the engine's advisory checks over any
// provided assignments
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.ValidateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	total := len(input.Tier2Users) + len(input.Tier3Users) + len(input.UpgradeUsers)
	if total == 0 {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": "At least one user is required",
		})
		return
	}

	year, month, err := scheduler.ParseMonth(input.MonthYear)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": "Invalid month/year format",
		})
		return
	}

	// Check for duplicate users across all tiers
	seen := make(map[string]bool)
	for _, list := range [][]string{input.Tier2Users, input.Tier3Users, input.UpgradeUsers} {
		for _, user := range list {
			if seen[user] {
				c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate user: " + user})
				return
			}
			seen[user] = true
		}
	}

	roster := models.NewRosterFromLists(input.Tier2Users, input.Tier3Users, input.UpgradeUsers)
	s := scheduler.New(roster, splitPTO(input.PTO), nil)
	s.Tolerance = h.Cfg.Tolerance
	warnings, err := s.Validate(year, month, input.Assignments)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"warnings": warnings,
		"stats": gin.H{
			"user_count":       total,
			"assignment_count": len(input.Assignments),
			"warning_count":    len(warnings),
		},
	})
}
