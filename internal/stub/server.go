// Package stub is an offline stand-in for the legal assistant backend. It
// serves the same three endpoints with deterministic simulated analyses.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"legiscope/internal/analysis"
	"legiscope/internal/backend"
)

const (
	emptyQuestion = "La question ne peut pas être vide."
	internalError = "Erreur interne pendant l'analyse"
	hypothesis    = "SIMULATION - Hypothèse de test"
)

// Server wraps the fiber app.
type Server struct {
	app    *fiber.App
	mode   backend.Mode
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the source of reply timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOnlineMode makes the stub advertise itself as online. Answers are
// simulated either way.
func WithOnlineMode() Option {
	return func(s *Server) { s.mode = backend.ModeOnline }
}

func New(opts ...Option) *Server {
	s := &Server{
		mode:   backend.ModeOffline,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "legiscope-stub",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:5173, http://127.0.0.1:5173",
	}))
	app.Use(s.logRequests)

	api := app.Group("/api")
	api.Get("/health", s.health)
	api.Get("/codes", s.codes)
	api.Post("/chat", s.chat)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.logger.Info("stub backend listening", zap.String("addr", addr), zap.String("mode", string(s.mode)))
	return s.app.Listen(addr)
}

// Serve runs the app on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	started := time.Now()
	err := c.Next()
	fields := []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Duration("elapsed", time.Since(started)),
	}
	if err != nil {
		s.logger.Warn("request failed", append(fields, zap.Error(err))...)
		return err
	}
	s.logger.Info("request", append(fields, zap.Int("status", c.Response().StatusCode()))...)
	return nil
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"detail": fe.Message})
	}
	s.logger.Error("stub handler failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": internalError})
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(backend.Health{Status: "ok", Mode: s.mode})
}

func (s *Server) codes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"codes": Codes})
}

func (s *Server) chat(c *fiber.Ctx) error {
	var req backend.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		// Same shape as a framework validation error: detail is a list.
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"detail": []fiber.Map{{"loc": []string{"body"}, "msg": "JSON invalide", "type": "value_error"}},
		})
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return fiber.NewError(fiber.StatusBadRequest, emptyQuestion)
	}

	code := ""
	if req.Code != nil {
		code, _ = knownCode(*req.Code)
	}
	if code == "" {
		code, _ = inferCode(question)
	}

	reply, err := s.simulate(question, code)
	if err != nil {
		return err
	}
	return c.JSON(reply)
}

// simulate builds the offline answer. code may be empty when no code was
// given or inferred.
func (s *Server) simulate(question, code string) (backend.ChatReply, error) {
	articles := append([]backend.Article(nil), sampleArticles[code]...)
	for i := range articles {
		articles[i].Source = "simulation"
	}
	debate := simulatedDebate(question, code, articles)

	analysisJSON, err := json.Marshal(debate)
	if err != nil {
		return backend.ChatReply{}, fmt.Errorf("stub: encode analysis: %w", err)
	}
	pretty, err := json.MarshalIndent(debate, "", "  ")
	if err != nil {
		return backend.ChatReply{}, fmt.Errorf("stub: encode answer: %w", err)
	}
	answerJSON, err := json.Marshal("```json\n" + string(pretty) + "\n```")
	if err != nil {
		return backend.ChatReply{}, fmt.Errorf("stub: encode answer: %w", err)
	}

	reply := backend.ChatReply{
		Question: question,
		Answer:   answerJSON,
		Analysis: analysisJSON,
		Articles: articles,
		QueryAnalysis: &backend.QueryAnalysis{
			Keywords:   keywords(question),
			Hypothesis: hypothesis,
		},
		Timestamp: s.now().UTC().Format("2006-01-02T15:04:05.000000"),
		Mode:      s.mode,
	}
	if code != "" {
		label := code
		reply.Code = &label
	}
	return reply, nil
}

func simulatedDebate(question, code string, articles []backend.Article) analysis.Debate {
	titles := make(analysis.List, 0, len(articles))
	for _, art := range articles {
		titles = append(titles, fmt.Sprintf("%s (%s)", art.Title, art.Code))
	}
	scope := "droit applicable"
	if code != "" {
		scope = code
	}

	d := analysis.Debate{
		PositionPro: analysis.Stance{Position: &analysis.Position{
			These:             fmt.Sprintf("Simulation : la demande paraît fondée au regard du %s.", scope),
			TextesApplicables: titles,
			Arguments: []analysis.Argument{{
				Point:   "Qualification des faits",
				Analyse: "Les faits décrits semblent réunir les conditions posées par les textes cités.",
				Sources: titles,
			}},
			Risques: analysis.List{"Réponse simulée hors ligne, à vérifier sur Légifrance."},
		}},
		PointsDeVigilance: analysis.List{
			"Mode hors ligne : aucune recherche Légifrance n'a été effectuée.",
			"Les délais de prescription doivent être vérifiés au cas par cas.",
		},
		Synthese: fmt.Sprintf("Analyse simulée pour « %s ».", question),
	}
	if len(articles) == 0 {
		d.PositionContra = analysis.Stance{Insufficient: true}
		return d
	}
	d.PositionContra = analysis.Stance{Position: &analysis.Position{
		These:             "Simulation : la partie adverse pourrait contester l'application de ces textes.",
		TextesApplicables: titles,
		Arguments: []analysis.Argument{{
			Point:   "Charge de la preuve",
			Analyse: "Il appartient au demandeur de prouver les faits qui fondent sa prétention.",
			Sources: analysis.List{},
		}},
		Risques: analysis.List{},
	}}
	return d
}
