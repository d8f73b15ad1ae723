package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spaceship-roguelite/persist"
	"spaceship-roguelite/sim"
)

var (
	errShipUnavailable = errors.New("ship unavailable")
	errShipMaxed       = errors.New("ship cannot be leveled")
	errUnlock          = errors.New("ship cannot be unlocked")
)

const runHistoryLimit = 20

type shopUpgradeReq struct {
	ID string `json:"id" binding:"required"`
}

type shopShipReq struct {
	Ship string `json:"ship" binding:"required"`
}

type profileResp struct {
	Identity Identity         `json:"identity"`
	Profile  *persist.Profile `json:"profile"`
	Runs     []RunRow         `json:"runs"`
}

// shopError maps a failed profile update to an HTTP response
func shopError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

type purchaseError struct{ status sim.PurchaseStatus }

func (e purchaseError) Error() string { return e.status.String() }

func (h *Hub) handleProfile(c *gin.Context) {
	id := identityFrom(c)
	runs, err := h.db.GetRunHistory(id.PlayerID, runHistoryLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, profileResp{
		Identity: id,
		Profile:  h.profiles.Get(id.PlayerID),
		Runs:     runs,
	})
}

func (h *Hub) handleBuyUpgrade(c *gin.Context) {
	var req shopUpgradeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.updateProfile(c, func(p *persist.Profile) error {
		if st := p.BuyUpgrade(h.catalog, req.ID); st != sim.PurchaseOK {
			return purchaseError{st}
		}
		return nil
	})
}

func (h *Hub) handleRefund(c *gin.Context) {
	h.updateProfile(c, func(p *persist.Profile) error {
		p.RefundUpgrades(h.catalog)
		return nil
	})
}

func (h *Hub) handleShipLevel(c *gin.Context) {
	h.shipAction(c, func(p *persist.Profile, ship string) error {
		if !p.LevelUpShip(h.catalog, ship) {
			return errShipMaxed
		}
		return nil
	})
}

func (h *Hub) handleUnlock(c *gin.Context) {
	h.shipAction(c, func(p *persist.Profile, ship string) error {
		if !p.UnlockShip(h.catalog, ship) {
			return errUnlock
		}
		return nil
	})
}

func (h *Hub) handleSelect(c *gin.Context) {
	h.shipAction(c, func(p *persist.Profile, ship string) error {
		if !p.SelectShip(h.catalog, ship) {
			return errShipUnavailable
		}
		return nil
	})
}

func (h *Hub) shipAction(c *gin.Context, fn func(p *persist.Profile, ship string) error) {
	var req shopShipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.updateProfile(c, func(p *persist.Profile) error { return fn(p, req.Ship) })
}

func (h *Hub) updateProfile(c *gin.Context, fn func(p *persist.Profile) error) {
	id := identityFrom(c)
	p, err := h.profiles.Update(id.PlayerID, fn)
	if err != nil {
		shopError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
