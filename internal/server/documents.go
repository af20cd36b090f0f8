package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	documentdomain "github.com/smallbiznis/docflow/internal/document/domain"
	taxdomain "github.com/smallbiznis/docflow/internal/tax/domain"
	"github.com/smallbiznis/docflow/pkg/db/pagination"
)

const headerIdempotencyKey = "Idempotency-Key"

type createDocumentRequest struct {
	DocumentType     string                         `json:"document_type"`
	ClientID         string                         `json:"client_id"`
	Counterparty     *documentdomain.PartySnapshot  `json:"counterparty"`
	DocumentNumber   string                         `json:"document_number"`
	Currency         string                         `json:"currency"`
	Items            []documentdomain.LineItemInput `json:"items"`
	DiscountPercent  decimal.NullDecimal            `json:"discount_percent"`
	DiscountAmount   decimal.NullDecimal            `json:"discount_amount"`
	TaxProtocol      string                         `json:"tax_protocol"`
	ExportOfServices bool                           `json:"export_of_services"`
	PlaceOfSupply    string                         `json:"place_of_supply"`
	DueDate          string                         `json:"due_date"`
	Notes            string                         `json:"notes"`
	Metadata         map[string]any                 `json:"metadata"`
}

func (r createDocumentRequest) toInput() (documentdomain.CreateInput, error) {
	documentType, err := documentdomain.ParseType(r.DocumentType)
	if err != nil {
		return documentdomain.CreateInput{}, err
	}
	protocol, err := taxdomain.ParseProtocol(r.TaxProtocol)
	if err != nil {
		return documentdomain.CreateInput{}, err
	}
	clientID, err := parseOptionalSnowflakeID(r.ClientID)
	if err != nil {
		return documentdomain.CreateInput{}, newValidationError("client_id", "invalid_client_id", "invalid client_id")
	}
	dueDate, err := parseOptionalTime(r.DueDate, true)
	if err != nil {
		return documentdomain.CreateInput{}, newValidationError("due_date", "invalid_due_date", "invalid due_date")
	}

	in := documentdomain.CreateInput{
		DocumentType:     documentType,
		Counterparty:     r.Counterparty,
		DocumentNumber:   strings.TrimSpace(r.DocumentNumber),
		Currency:         strings.TrimSpace(r.Currency),
		Items:            r.Items,
		DiscountPercent:  r.DiscountPercent,
		DiscountAmount:   r.DiscountAmount,
		TaxProtocol:      protocol,
		ExportOfServices: r.ExportOfServices,
		PlaceOfSupply:    strings.TrimSpace(r.PlaceOfSupply),
		DueDate:          dueDate,
		Notes:            r.Notes,
		Metadata:         r.Metadata,
	}
	if clientID != nil {
		in.ClientID = *clientID
	}
	return in, nil
}

func (s *Server) CreateDocument(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	in, err := req.toInput()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.documentSvc.Create(c.Request.Context(), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) PreviewDocument(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	in, err := req.toInput()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.documentSvc.Preview(c.Request.Context(), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDocuments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		DocumentType string `form:"document_type"`
		Status       string `form:"status"`
		ClientID     string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := documentdomain.ListRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	}
	if strings.TrimSpace(query.DocumentType) != "" {
		documentType, err := documentdomain.ParseType(query.DocumentType)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.DocumentType = &documentType
	}
	if strings.TrimSpace(query.Status) != "" {
		status, err := documentdomain.ParseStatus(query.Status)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.Status = &status
	}
	clientID, err := parseOptionalSnowflakeID(query.ClientID)
	if err != nil {
		AbortWithError(c, newValidationError("client_id", "invalid_client_id", "invalid client_id"))
		return
	}
	req.ClientID = clientID

	resp, err := s.documentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDocumentByID(c *gin.Context) {
	resp, err := s.documentSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateDocumentRequest struct {
	Items            *[]documentdomain.LineItemInput `json:"items"`
	DiscountPercent  *decimal.NullDecimal            `json:"discount_percent"`
	DiscountAmount   *decimal.NullDecimal            `json:"discount_amount"`
	TaxProtocol      *string                         `json:"tax_protocol"`
	ExportOfServices *bool                           `json:"export_of_services"`
	PlaceOfSupply    *string                         `json:"place_of_supply"`
	Currency         *string                         `json:"currency"`
	DueDate          *string                         `json:"due_date"`
	Notes            *string                         `json:"notes"`
	Metadata         map[string]any                  `json:"metadata"`
	Version          int64                           `json:"version"`
}

func (r updateDocumentRequest) toPatch() (documentdomain.Patch, error) {
	patch := documentdomain.Patch{
		Items:            r.Items,
		DiscountPercent:  r.DiscountPercent,
		DiscountAmount:   r.DiscountAmount,
		ExportOfServices: r.ExportOfServices,
		PlaceOfSupply:    r.PlaceOfSupply,
		Currency:         r.Currency,
		Notes:            r.Notes,
		Metadata:         r.Metadata,
		Version:          r.Version,
	}
	if r.TaxProtocol != nil {
		protocol, err := taxdomain.ParseProtocol(*r.TaxProtocol)
		if err != nil {
			return documentdomain.Patch{}, err
		}
		patch.TaxProtocol = &protocol
	}
	if r.DueDate != nil {
		dueDate, err := parseOptionalTime(*r.DueDate, true)
		if err != nil || dueDate == nil {
			return documentdomain.Patch{}, newValidationError("due_date", "invalid_due_date", "invalid due_date")
		}
		patch.DueDate = dueDate
	}
	return patch, nil
}

func (s *Server) UpdateDocument(c *gin.Context) {
	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.documentSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDocument(c *gin.Context) {
	if err := s.documentSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) SendDocument(c *gin.Context) {
	resp, err := s.documentSvc.Send(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelDocument(c *gin.Context) {
	resp, err := s.documentSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkDocumentOverdue(c *gin.Context) {
	resp, err := s.documentSvc.MarkOverdue(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type recordPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	Reference      string          `json:"reference"`
	PaidAt         string          `json:"paid_at"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func (s *Server) RecordDocumentPayment(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	paidAt, err := parseOptionalTime(req.PaidAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("paid_at", "invalid_paid_at", "invalid paid_at"))
		return
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
	}

	resp, err := s.documentSvc.RecordPayment(c.Request.Context(), strings.TrimSpace(c.Param("id")), documentdomain.PaymentInput{
		Amount:         req.Amount,
		Method:         strings.TrimSpace(req.Method),
		Reference:      strings.TrimSpace(req.Reference),
		PaidAt:         paidAt,
		IdempotencyKey: key,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
