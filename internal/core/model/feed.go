package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FeedItemKind enumerates what a feed entry carries.
type FeedItemKind int

const (
	FeedPost FeedItemKind = iota
	FeedAnalysis
	FeedInfo
	FeedError
)

// FeedItem is one immutable entry in the bounded activity feed.
// Exactly one of the payload groups is populated, according to Kind.
// Seq is assigned by the store on insertion and increases monotonically
// across the whole session, surviving eviction and feed clears.
type FeedItem struct {
	ID   uuid.UUID
	Seq  uint64
	At   time.Time
	Kind FeedItemKind
	URL  string

	// FeedPost
	Author   string
	Text     string
	Monitors []string

	// FeedAnalysis
	Monitor  string
	Provider string
	Model    string
	Output   string

	// FeedInfo / FeedError
	Message string
}

// NewInfoItem creates an informational feed item
func NewInfoItem(message string) FeedItem {
	return FeedItem{
		ID:      uuid.New(),
		At:      time.Now(),
		Kind:    FeedInfo,
		Message: message,
	}
}

// NewErrorItem creates an error feed item
func NewErrorItem(message string) FeedItem {
	return FeedItem{
		ID:      uuid.New(),
		At:      time.Now(),
		Kind:    FeedError,
		Message: message,
	}
}

// NewPostItem creates a feed item for a matched stream post
func NewPostItem(post StreamPost, monitors []string) FeedItem {
	return FeedItem{
		ID:       uuid.New(),
		At:       time.Now(),
		Kind:     FeedPost,
		URL:      post.URL(),
		Author:   post.Author(),
		Text:     post.Text,
		Monitors: monitors,
	}
}

// NewAnalysisItem creates a feed item for a completed AI analysis
func NewAnalysisItem(monitor, provider, model, output, url string) FeedItem {
	return FeedItem{
		ID:       uuid.New(),
		At:       time.Now(),
		Kind:     FeedAnalysis,
		URL:      url,
		Monitor:  monitor,
		Provider: provider,
		Model:    model,
		Output:   output,
	}
}

// Summary renders a single-line representation of the feed item
func (f FeedItem) Summary() string {
	ts := f.At.Format("15:04:05")
	switch f.Kind {
	case FeedPost:
		label := "monitor: unknown"
		if len(f.Monitors) > 0 {
			label = "monitor: " + strings.Join(f.Monitors, ", ")
		}
		return fmt.Sprintf("[%s] POST @%s | %s | %s", ts, f.Author, label, flatten(f.Text))
	case FeedAnalysis:
		return fmt.Sprintf("[%s] AI (%s:%s) [%s] %s", ts, f.Provider, f.Model, f.Monitor, flatten(f.Output))
	case FeedInfo:
		return fmt.Sprintf("[%s] INFO %s", ts, f.Message)
	case FeedError:
		return fmt.Sprintf("[%s] ERROR %s", ts, f.Message)
	default:
		return fmt.Sprintf("[%s] %s", ts, f.Message)
	}
}

func flatten(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}
