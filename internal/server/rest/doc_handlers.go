package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/demomiru/minicrm/internal/common"
	"github.com/demomiru/minicrm/internal/server/models"
	"github.com/demomiru/minicrm/internal/server/repositories/documents"
	"github.com/gin-gonic/gin"
)

func nowMillis() int64 { return time.Now().UnixMilli() }

func customerDocPath(id string) string {
	return "customers/" + id
}

func orderDocPath(customerID, orderID string) string {
	return "customers/" + customerID + "/orders/" + orderID
}

func (s *Server) readBody(c *gin.Context) (json.RawMessage, bool) {
	var doc json.RawMessage
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}
	return doc, true
}

func (s *Server) set(c *gin.Context, path string) {
	doc, ok := s.readBody(c)
	if !ok {
		return
	}

	if err := s.docs.Set(c.Request.Context(), c.Param("uid"), path, doc, nowMillis()); err != nil {
		s.logger.Error(c.Request.Context(), "error writing document", "path", path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) patch(c *gin.Context, path string) {
	fields, ok := s.readBody(c)
	if !ok {
		return
	}

	err := s.docs.Patch(c.Request.Context(), c.Param("uid"), path, fields, nowMillis())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		s.logger.Error(c.Request.Context(), "error patching document", "path", path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) query(c *gin.Context, collection, defaultOrder string) {
	orderBy := c.DefaultQuery("orderBy", defaultOrder)
	desc := c.Query("desc") == "true"

	docs, err := s.docs.Query(c.Request.Context(), c.Param("uid"), collection, orderBy, desc)
	if err != nil {
		s.logger.Error(c.Request.Context(), "error querying documents", "collection", collection, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if docs == nil {
		docs = []json.RawMessage{}
	}
	c.JSON(http.StatusOK, docs)
}

func (s *Server) setCustomer(c *gin.Context) {
	s.set(c, customerDocPath(c.Param("id")))
}

func (s *Server) patchCustomer(c *gin.Context) {
	s.patch(c, customerDocPath(c.Param("id")))
}

func (s *Server) getCustomer(c *gin.Context) {
	path := customerDocPath(c.Param("id"))
	doc, err := s.docs.Get(c.Request.Context(), c.Param("uid"), path)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		s.logger.Error(c.Request.Context(), "error reading document", "path", path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Data(http.StatusOK, "application/json", doc)
}

func (s *Server) queryCustomers(c *gin.Context) {
	s.query(c, "customers", "createdAt")
}

func (s *Server) setOrder(c *gin.Context) {
	s.set(c, orderDocPath(c.Param("id"), c.Param("oid")))
}

func (s *Server) patchOrder(c *gin.Context) {
	s.patch(c, orderDocPath(c.Param("id"), c.Param("oid")))
}

func (s *Server) queryOrders(c *gin.Context) {
	s.query(c, "customers/"+c.Param("id")+"/orders", "orderDate")
}

type batchRequest struct {
	Writes []models.Write `json:"writes"`
}

// storagePath converts an absolute API write path into the user-relative
// storage path, rejecting writes outside the caller's tree.
func storagePath(userID, apiPath string) (string, error) {
	prefix := "/api/users/" + userID + "/"
	rel, ok := strings.CutPrefix(apiPath, prefix)
	if !ok || rel == "" {
		return "", fmt.Errorf("path %q is outside the user tree", apiPath)
	}
	if strings.Contains(rel, "..") {
		return "", fmt.Errorf("invalid path %q", apiPath)
	}
	return rel, nil
}

// batch commits all writes in one transaction: either every document lands
// or none do.
func (s *Server) batch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Writes) == 0 {
		c.Status(http.StatusOK)
		return
	}

	userID := c.Param("uid")
	writes := make([]models.Write, 0, len(req.Writes))
	for _, w := range req.Writes {
		rel, err := storagePath(userID, w.Path)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		writes = append(writes, models.Write{Path: rel, Doc: w.Doc})
	}

	now := nowMillis()
	err := s.inTx(c.Request.Context(), func(docs documents.Repository) error {
		return docs.SetAll(c.Request.Context(), userID, writes, now)
	})
	if err != nil {
		s.logger.Error(c.Request.Context(), "error committing batch", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusOK)
}
