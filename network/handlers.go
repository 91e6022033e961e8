package network

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luca-patrignani/newsledger/verify"
)

type lookupRequest struct {
	Hash string `json:"hash"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// POST /verify
func (s *Server) handleVerify(c *gin.Context) {
	var req verify.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	res, err := s.service.Verify(c.Request.Context(), req)
	switch {
	case errors.Is(err, verify.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No input provided"})
		return
	case errors.Is(err, verify.ErrUnknownType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("verification failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /lookup
// A hash that matches nothing is a 404 with found=false, never an error.
func (s *Server) handleLookup(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	res := s.service.Lookup(req.Hash)
	if !res.Found {
		c.JSON(http.StatusNotFound, gin.H{"found": false, "message": "Hash not found."})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.Stats().Snapshot())
}

func (s *Server) handleNode(c *gin.Context) {
	signer := s.service.Signer()
	c.JSON(http.StatusOK, gin.H{
		"node_id":    signer.NodeID(),
		"public_key": signer.PublicKey(),
		"tls":        s.TLS(),
	})
}

func (s *Server) handleChain(c *gin.Context) {
	blocks := s.chain.Blocks()
	c.JSON(http.StatusOK, gin.H{
		"length": len(blocks),
		"chain":  blocks,
	})
}

func (s *Server) handleChainVerify(c *gin.Context) {
	if err := s.chain.Verify(); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}
