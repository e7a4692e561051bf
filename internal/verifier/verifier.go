package verifier

import (
	"context"

	"github.com/thanhnp/proof-of-reserves/internal/metrics"
	"github.com/thanhnp/proof-of-reserves/internal/models"
	"github.com/thanhnp/proof-of-reserves/internal/proof"
	"github.com/thanhnp/proof-of-reserves/internal/resolver"
)

// Service sequences one verification request through the decoder, the
// resolver and the proof verifier, and normalizes every failure into the
// classified error taxonomy. It owns no protocol knowledge of its own.
type Service struct {
	resolver *resolver.Resolver
	verifier *proof.Verifier
	metrics  *metrics.Metrics
}

// New creates a verification service.
func New(r *resolver.Resolver, m *metrics.Metrics) *Service {
	return &Service{
		resolver: r,
		verifier: proof.NewVerifier(),
		metrics:  m,
	}
}

// Verify runs one verification request end to end and returns the
// proven spendable total in satoshis, along with the network the
// addresses resolved against. Any failure is a classified
// *models.VerificationError and bumps the invalid counter; success bumps
// the success counter.
func (s *Service) Verify(ctx context.Context, req *models.VerificationRequest) (models.Network, int64, error) {
	network, spendable, err := s.verify(ctx, req)
	if err != nil {
		s.metrics.IncInvalid()
		return network, 0, err
	}
	s.metrics.IncSuccess()
	return network, spendable, nil
}

func (s *Service) verify(ctx context.Context, req *models.VerificationRequest) (models.Network, int64, error) {
	pf, err := proof.Decode(req.ProofPSBT)
	if err != nil {
		return "", 0, err
	}

	network, utxos, err := s.resolver.Resolve(ctx, req.Addresses)
	if err != nil {
		return network, 0, err
	}

	spendable, err := s.verifier.Verify(pf, req.Message, utxos)
	if err != nil {
		return network, 0, err
	}
	return network, spendable, nil
}
