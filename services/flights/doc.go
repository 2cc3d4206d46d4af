// Package flights talks to the third-party flight search API.
package flights

//go:generate mockgen -destination=mocks/mock_searcher.go -package=mocks flylow/services/flights Searcher
