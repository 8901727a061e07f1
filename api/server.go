// Package api exposes the comparison engine over HTTP. Carts are held as
// in-memory storefront documents, each driven by its own session.
package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"price-scout/config"
	"price-scout/models"
	"price-scout/rates"
	"price-scout/render"
	"price-scout/scraper/market"
	"price-scout/services"
	"price-scout/session"
	"price-scout/storefront"
	"price-scout/utils"
)

// Deps wires the server to the engine.
type Deps struct {
	Config      *config.Config
	Comparer    *services.Comparer
	Rates       rates.Source
	Preferences storefront.Preferences
	Renderer    *render.Renderer
	Clock       session.Clock
}

type cart struct {
	doc     *storefront.Document
	session *session.Session
}

type Server struct {
	deps   Deps
	engine *gin.Engine

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	carts map[string]*cart
}

func NewServer(deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = session.RealClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		carts:  make(map[string]*cart),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down and disposes carts.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	errCh := make(chan error, 1)
	go func() {
		utils.Info("HTTP server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close disposes every cart session.
func (s *Server) Close() {
	s.mu.Lock()
	carts := s.carts
	s.carts = make(map[string]*cart)
	s.mu.Unlock()

	for _, c := range carts {
		c.session.Dispose()
	}
	s.cancel()
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/markets", s.listMarkets)
	r.GET("/rates", s.listRates)
	r.POST("/rates/refresh", s.refreshRates)
	r.POST("/compare", s.compare)

	carts := r.Group("/carts")
	carts.POST("", s.createCart)
	carts.GET("/:id", s.getCart)
	carts.DELETE("/:id", s.deleteCart)
	carts.PUT("/:id/items", s.replaceItems)
	carts.PATCH("/:id/items/:productId", s.updateQuantity)
	carts.DELETE("/:id/items/:productId", s.removeItem)
	carts.POST("/:id/rerender", s.rerender)
	carts.POST("/:id/resize", s.resize)
	return r
}

func (s *Server) listMarkets(c *gin.Context) {
	markets, err := s.deps.Preferences.Markets(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"markets": markets})
}

func (s *Server) listRates(c *gin.Context) {
	r, err := s.deps.Rates.Rates(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	codes := make([]string, 0, len(r))
	for code := range r {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	c.JSON(http.StatusOK, gin.H{"base": s.deps.Config.HomeCurrency, "currencies": codes, "rates": r})
}

type invalidator interface {
	Invalidate()
}

// refreshRates drops memoized rates, when the source keeps any, and
// resolves them again.
func (s *Server) refreshRates(c *gin.Context) {
	if inv, ok := s.deps.Rates.(invalidator); ok {
		inv.Invalidate()
	}
	s.listRates(c)
}

type compareRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Name      string `json:"name"`
	Price     string `json:"price" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// compare runs one product through the whole pipeline. With no markets
// selected nothing is fetched and the summary is empty.
func (s *Server) compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, validationError(err.Error()))
		return
	}
	if req.Quantity < 0 {
		handleError(c, validationError("quantity must not be negative"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	price, err := market.ParsePrice(req.Price)
	if err != nil {
		handleError(c, validationError(err.Error()))
		return
	}

	ctx := c.Request.Context()
	markets, err := s.deps.Preferences.Markets(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	fields := models.ItemFields{
		ProductID:     req.ProductID,
		DisplayName:   req.Name,
		HomeUnitPrice: price,
		Quantity:      req.Quantity,
	}
	if len(markets) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"item":    models.LineItem{ID: fields.ProductID, DisplayName: fields.DisplayName, HomeUnitPrice: price, Quantity: fields.Quantity},
			"summary": models.NewSavingsSummary(),
			"html":    "",
		})
		return
	}

	r, err := s.deps.Rates.Rates(ctx)
	if err != nil {
		handleError(c, err)
		return
	}

	norm := services.NewNormalizer(r)
	item := s.deps.Comparer.BuildItem(ctx, fields, markets, norm)
	summary := services.Aggregate([]models.LineItem{item})

	html, err := s.deps.Renderer.Item(item)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "summary": summary, "html": html})
}

type createCartRequest struct {
	Items []storefront.DocItem `json:"items" binding:"required"`
}

func (s *Server) createCart(c *gin.Context) {
	var req createCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, validationError(err.Error()))
		return
	}

	doc := storefront.NewDocument(req.Items)
	sess, err := session.NewSession(c.Request.Context(), session.Deps{
		Extractor:   doc,
		Sink:        doc,
		Observer:    doc,
		Preferences: s.deps.Preferences,
		Rates:       s.deps.Rates,
		Comparer:    s.deps.Comparer,
		Renderer:    s.deps.Renderer,
	}, session.WithConfig(s.deps.Config), session.WithClock(s.deps.Clock))
	if err != nil {
		handleError(c, err)
		return
	}

	s.mu.Lock()
	s.carts[sess.ID()] = &cart{doc: doc, session: sess}
	s.mu.Unlock()

	go func() {
		if err := sess.Run(s.ctx); err != nil && s.ctx.Err() == nil {
			utils.Log().Error().Str("session", sess.ID()).Err(err).Msg("cart session stopped")
		}
	}()

	c.JSON(http.StatusCreated, gin.H{"id": sess.ID(), "status": sess.Status()})
}

func (s *Server) lookup(c *gin.Context) (*cart, bool) {
	s.mu.Lock()
	ct, ok := s.carts[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		handleError(c, notFound("cart not found"))
	}
	return ct, ok
}

func (s *Server) getCart(c *gin.Context) {
	ct, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": ct.session.Status(),
		"items":  ct.doc.Items(),
		"nodes":  ct.doc.Nodes(),
		"errors": ct.doc.Errors(),
	})
}

func (s *Server) deleteCart(c *gin.Context) {
	ct, ok := s.lookup(c)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.carts, c.Param("id"))
	s.mu.Unlock()

	ct.session.Dispose()
	c.Status(http.StatusNoContent)
}

func (s *Server) replaceItems(c *gin.Context) {
	ct, ok := s.lookup(c)
	if !ok {
		return
	}
	var req createCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, validationError(err.Error()))
		return
	}
	ct.doc.SetItems(req.Items)
	c.JSON(http.StatusAccepted, gin.H{"status": ct.session.Status()})
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// updateQuantity mirrors a quantity input: the rendered comparison is
// rescaled at once, then the storefront item changes.
func (s *Server) updateQuantity(c *gin.Context) {
	ct, ok := s.lookup(c)
	if !ok {
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, validationError(err.Error()))
		return
	}
	if *req.Quantity < 0 {
		handleError(c, validationError("quantity must not be negative"))
		return
	}

	productID := c.Param("productId")
	ct.session.QuantityChanged(productID, *req.Quantity)
	if !ct.doc.SetQuantity(productID, *req.Quantity) {
		handleError(c, notFound("item not in cart"))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": ct.session.Status()})
}

func (s *Server) removeItem(c *gin.Context) {
	ct, ok := s.lookup(c)
	if !ok {
		return
	}
	if !ct.doc.RemoveItem(c.Param("productId")) {
		handleError(c, notFound("item not in cart"))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": ct.session.Status()})
}

func (s *Server) rerender(c *gin.Context) {
	ct, ok := s.lookup(c)
	if !ok {
		return
	}
	ct.doc.Rerender()
	c.JSON(http.StatusAccepted, gin.H{"status": ct.session.Status()})
}

type resizeRequest struct {
	Width float64 `json:"width" binding:"required"`
}

func (s *Server) resize(c *gin.Context) {
	ct, ok := s.lookup(c)
	if !ok {
		return
	}
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, validationError(err.Error()))
		return
	}
	ct.doc.Resize(req.Width)
	c.JSON(http.StatusAccepted, gin.H{"status": ct.session.Status()})
}
