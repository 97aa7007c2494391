// Package api provides the gRPC LoanRules service implementation.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/circdesk/loanrules/internal/core/auth"
	"github.com/circdesk/loanrules/internal/core/config"
	"github.com/circdesk/loanrules/internal/core/metrics"
	"github.com/circdesk/loanrules/internal/rules"
	"github.com/circdesk/loanrules/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// LoanRulesStore is the persistence the service needs.
// Implemented by *db.LoanRulesStore.
type LoanRulesStore interface {
	Get(ctx context.Context, tenant types.TenantID) (*types.LoanRules, error)
	Put(ctx context.Context, tenant types.TenantID, text string) (*types.LoanRules, error)
}

// LoanRulesService implements LoanRulesServer.
// Thin orchestration layer delegating to auth, rules, and the store.
type LoanRulesService struct {
	store   LoanRulesStore
	engine  *rules.Engine
	cfg     *config.ServiceConfig
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewLoanRulesService creates service instance with dependencies.
// collector and logger are optional.
func NewLoanRulesService(store LoanRulesStore, engine *rules.Engine, cfg *config.ServiceConfig, collector *metrics.Collector, logger *slog.Logger) (*LoanRulesService, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &LoanRulesService{
		store:   store,
		engine:  engine,
		cfg:     cfg,
		metrics: collector,
		logger:  logger.With("component", "loanrules-service"),
	}, nil
}

// GetLoanRules returns the tenant's stored text with its Drools rendering.
// The Drools text is derived on every read and never stored.
func (s *LoanRulesService) GetLoanRules(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	tenant, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	record, err := s.store.Get(ctx, tenant)
	if err != nil {
		return nil, toStatus(err)
	}

	rs, err := s.compile(record.Text)
	if err != nil {
		// Stored text always passed the write gate; a failure here means
		// the default priorities changed underneath it.
		s.logger.Error("stored loan rules no longer compile", "tenant_id", tenant, "error", err)
		return nil, status.Error(codes.Internal, fmt.Sprintf("stored loan rules do not compile: %v", err))
	}

	return newStruct(map[string]any{
		types.FieldRulesText:   record.Text,
		types.FieldRulesDrools: rs.Drools(),
	})
}

// PutLoanRules validates and stores the tenant's rule text. Any supplied
// Drools text is ignored. Nothing is written when the text fails to compile.
func (s *LoanRulesService) PutLoanRules(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	tenant, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	text, err := s.ruleText(req)
	if err != nil {
		return nil, toStatus(err)
	}

	rs, err := s.compile(text)
	if err != nil {
		s.logger.Info("rejected loan rules", "tenant_id", tenant, "error", err)
		return nil, toStatus(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	record, err := s.store.Put(ctx, tenant, text)
	if err != nil {
		s.logger.Error("failed to store loan rules", "tenant_id", tenant, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info("stored loan rules",
		"tenant_id", tenant,
		"loan_rules_id", record.ID,
		"rules", len(rs.Rules),
	)
	return &emptypb.Empty{}, nil
}

// CompileLoanRules compiles rule text without storing it.
func (s *LoanRulesService) CompileLoanRules(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := tenantFromContext(ctx); err != nil {
		return nil, err
	}

	text, err := s.ruleText(req)
	if err != nil {
		return nil, toStatus(err)
	}

	rs, err := s.compile(text)
	if err != nil {
		return nil, toStatus(err)
	}

	return newStruct(map[string]any{
		types.FieldRulesDrools: rs.Drools(),
		types.FieldRuleCount:   len(rs.Rules),
	})
}

// compile runs the engine and records compile metrics.
func (s *LoanRulesService) compile(text string) (*rules.RuleSet, error) {
	start := time.Now()
	rs, err := s.engine.Compile(text)
	if s.metrics != nil {
		s.metrics.RecordCompile(time.Since(start), rs, err)
	}
	return rs, err
}

// ruleText extracts and size-checks the rule text field of a request.
func (s *LoanRulesService) ruleText(req *structpb.Struct) (string, error) {
	v, ok := req.GetFields()[types.FieldRulesText]
	if !ok {
		return "", types.ErrMissingRuleText
	}
	if _, isString := v.GetKind().(*structpb.Value_StringValue); !isString {
		return "", fmt.Errorf("%s must be a string: %w", types.FieldRulesText, types.ErrMissingRuleText)
	}

	text := v.GetStringValue()
	if len(text) > s.cfg.MaxRuleTextSize {
		return "", fmt.Errorf("%d bytes exceeds %d: %w", len(text), s.cfg.MaxRuleTextSize, types.ErrRuleTextTooLarge)
	}
	return text, nil
}

func tenantFromContext(ctx context.Context) (types.TenantID, error) {
	tenant := auth.TenantIDFromContext(ctx)
	if tenant == "" {
		return "", status.Error(codes.Internal, "missing tenant_id in context")
	}
	return tenant, nil
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return st, nil
}
