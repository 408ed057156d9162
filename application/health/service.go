package health

import (
	json "github.com/json-iterator/go"

	"qdispatch/middleware"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CheckHealth() (map[string]string, error) {
	result := make(map[string]string)

	if err := s.repo.Ping(); err != nil {
		result["database"] = "error"
		return result, err
	}
	result["database"] = "ok"
	return result, nil
}

func (s *Service) CheckHealthStream() <-chan middleware.StreamChunk {
	chunkChan := make(chan middleware.StreamChunk, 2)
	go func() {
		defer close(chunkChan)

		result := make(map[string]string)
		if err := s.repo.Ping(); err != nil {
			result["database"] = "error"
		} else {
			result["database"] = "ok"
		}

		jsonData, _ := json.Marshal(result)
		chunkChan <- middleware.StreamChunk{
			JSONBuf: &jsonData,
		}
	}()
	return chunkChan
}
