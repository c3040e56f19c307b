package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexLead indexes a lead (fire-and-forget to Meilisearch).
func (s *Service) IndexLead(l LeadRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexLead(l); err != nil {
			log.Printf("search: index lead %s: %v", l.ID, err)
		}
	}()
}

// IndexTask indexes a task (fire-and-forget to Meilisearch).
func (s *Service) IndexTask(t TaskRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexTask(t); err != nil {
			log.Printf("search: index task %s: %v", t.ID, err)
		}
	}()
}

// IndexObjective indexes an objective (fire-and-forget to Meilisearch).
func (s *Service) IndexObjective(o ObjectiveRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexObjective(o); err != nil {
			log.Printf("search: index objective %s: %v", o.ID, err)
		}
	}()
}

// DeleteLead removes a lead from the search index (fire-and-forget).
func (s *Service) DeleteLead(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteLead(id); err != nil {
			log.Printf("search: delete lead %s: %v", id, err)
		}
	}()
}

// DeleteTask removes a task from the search index (fire-and-forget).
func (s *Service) DeleteTask(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteTask(id); err != nil {
			log.Printf("search: delete task %s: %v", id, err)
		}
	}()
}

// ReindexAll pushes the given records to Meilisearch in bulk.
func (s *Service) ReindexAll(leads []LeadRecord, tasks []TaskRecord, objectives []ObjectiveRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	if len(leads) > 0 {
		if err := s.meili.IndexLeads(leads); err != nil {
			log.Printf("search: reindex leads: %v", err)
		}
	}
	if len(tasks) > 0 {
		if err := s.meili.IndexTasks(tasks); err != nil {
			log.Printf("search: reindex tasks: %v", err)
		}
	}
	if len(objectives) > 0 {
		if err := s.meili.IndexObjectives(objectives); err != nil {
			log.Printf("search: reindex objectives: %v", err)
		}
	}
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	leads, tasks, objectives, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	s.ReindexAll(leads, tasks, objectives)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
