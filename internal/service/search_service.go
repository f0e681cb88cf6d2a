package service

import (
	"context"
	"strings"
	"sync"

	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/repository"
	"go.uber.org/zap"
)

// SearchService runs the global cross-entity search. The four entity
// queries are independent, so they run concurrently; a failing leg is
// logged and returns empty rather than failing the whole search.
type SearchService struct {
	contactRepo *repository.ContactRepository
	companyRepo *repository.CompanyRepository
	leadRepo    *repository.LeadRepository
	dealRepo    *repository.DealRepository
	logger      *zap.Logger
}

func NewSearchService(
	contactRepo *repository.ContactRepository,
	companyRepo *repository.CompanyRepository,
	leadRepo *repository.LeadRepository,
	dealRepo *repository.DealRepository,
	logger *zap.Logger,
) *SearchService {
	return &SearchService{
		contactRepo: contactRepo,
		companyRepo: companyRepo,
		leadRepo:    leadRepo,
		dealRepo:    dealRepo,
		logger:      logger,
	}
}

// Search fans out over contacts, companies, leads and deals
func (s *SearchService) Search(ctx context.Context, query string, limit int) (*domain.SearchResults, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, domain.NewValidationError("search query must be at least 2 characters")
	}
	if limit <= 0 || limit > 25 {
		limit = 10
	}

	results := &domain.SearchResults{
		Query:     query,
		Contacts:  []domain.SearchHit{},
		Companies: []domain.SearchHit{},
		Leads:     []domain.SearchHit{},
		Deals:     []domain.SearchHit{},
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		contacts, err := s.contactRepo.Search(ctx, query, limit)
		if err != nil {
			s.logger.Warn("contact search failed", zap.Error(err))
			return
		}
		for i := range contacts {
			results.Contacts = append(results.Contacts, domain.SearchHit{
				EntityType: "contact",
				ID:         contacts[i].ID,
				Title:      contacts[i].FullName(),
				Subtitle:   contacts[i].Email,
			})
		}
	}()

	go func() {
		defer wg.Done()
		companies, err := s.companyRepo.Search(ctx, query, limit)
		if err != nil {
			s.logger.Warn("company search failed", zap.Error(err))
			return
		}
		for i := range companies {
			results.Companies = append(results.Companies, domain.SearchHit{
				EntityType: "company",
				ID:         companies[i].ID,
				Title:      companies[i].Name,
				Subtitle:   companies[i].Website,
			})
		}
	}()

	go func() {
		defer wg.Done()
		leads, err := s.leadRepo.Search(ctx, query, limit)
		if err != nil {
			s.logger.Warn("lead search failed", zap.Error(err))
			return
		}
		for i := range leads {
			results.Leads = append(results.Leads, domain.SearchHit{
				EntityType: "lead",
				ID:         leads[i].ID,
				Title:      leads[i].FullName(),
				Subtitle:   leads[i].CompanyName,
			})
		}
	}()

	go func() {
		defer wg.Done()
		deals, err := s.dealRepo.Search(ctx, query, limit)
		if err != nil {
			s.logger.Warn("deal search failed", zap.Error(err))
			return
		}
		for i := range deals {
			results.Deals = append(results.Deals, domain.SearchHit{
				EntityType: "deal",
				ID:         deals[i].ID,
				Title:      deals[i].Name,
				Subtitle:   deals[i].Currency,
			})
		}
	}()

	wg.Wait()
	return results, nil
}
