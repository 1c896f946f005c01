package api

import (
	"net/http"

	"talos-staking/contract/blocklist"
	"talos-staking/contract/ledger"

	"github.com/labstack/echo/v4"
)

type chainResponse struct {
	Seeded     bool   `json:"seeded"`
	LastHeight uint32 `json:"last_height"`
}

func (s *Server) addUser(c echo.Context) error {
	var req userRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	// rejects addresses from other networks
	if _, err := s.addressScript(req.Address); err != nil {
		return err
	}
	publicKey, err := decodeHex(req.PublicKey, "public key")
	if err != nil {
		return err
	}
	user, err := s.ledger.AddUser(req.Address, publicKey)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) getUser(c echo.Context) error {
	user, err := s.ledger.User(c.Param(ParameterAddress))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) blockUser(c echo.Context) error {
	address := c.Param(ParameterAddress)
	if err := s.ledger.BlockUser(address); err != nil {
		return err
	}
	user, err := s.ledger.User(address)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) listRunes(c echo.Context) error {
	listings, err := s.ledger.Runes()
	if err != nil {
		return err
	}
	if listings == nil {
		listings = []*ledger.RuneListing{}
	}
	return c.JSON(http.StatusOK, listings)
}

func (s *Server) addRune(c echo.Context) error {
	var req runeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	listing := ledger.RuneListing{RuneID: req.RuneID, Status: ledger.RuneStatus(req.Status)}
	if req.MinStake != "" {
		minStake, err := parseDecimal(req.MinStake, "min_stake")
		if err != nil {
			return err
		}
		listing.MinStake = *minStake
	}
	if err := s.ledger.AddRune(listing); err != nil {
		return err
	}
	stored, err := s.ledger.Rune(req.RuneID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, stored)
}

func (s *Server) setRuneStatus(c echo.Context) error {
	var req runeStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	runeID := c.Param(ParameterRuneID)
	if err := s.ledger.SetRuneStatus(runeID, ledger.RuneStatus(req.Status)); err != nil {
		return err
	}
	listing, err := s.ledger.Rune(runeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listing)
}

func (s *Server) seedBlocks(c echo.Context) error {
	var input blocklist.BlockSeedInput
	if err := bind(c, &input); err != nil {
		return err
	}
	if err := s.blocks.Seed(&input); err != nil {
		return err
	}
	data, err := s.blocks.Data()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, &chainResponse{Seeded: data.Seeded, LastHeight: data.LastHeight})
}

func (s *Server) addBlocks(c echo.Context) error {
	var input blocklist.AddBlocksInput
	if err := bind(c, &input); err != nil {
		return err
	}
	headers, err := blocklist.DivideHeaderList(input.Blocks)
	if err != nil {
		return err
	}
	out, err := s.blocks.AddHeaders(headers)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
