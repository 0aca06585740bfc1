package services

import (
	"fmt"
	"sort"
	"strings"

	"instagram-scraper/models"
	"instagram-scraper/utils"
)

type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Generate computes the run summary over every post the loop extracted.
func (s *ReportService) Generate(profile string, posts []*models.Post) *models.RunReport {
	report := &models.RunReport{
		Profile:        profile,
		CommentsByUser: make(map[string]int),
	}

	if len(posts) == 0 {
		return report
	}

	report.TotalPosts = len(posts)

	for _, p := range posts {
		report.TotalComments += len(p.Comments)
		report.TotalRows += p.RowCount()

		switch p.OCRText.Status {
		case models.FieldOK:
			if p.OCRText.Value != "" {
				report.PostsWithOCRText++
			}
		case models.FieldFailed:
			report.OCRFailures++
		}

		if p.Caption.Status != models.FieldOK {
			report.CaptionsMissing++
		}

		for _, c := range p.Comments {
			report.CommentsByUser[c.Username]++
		}
	}

	return report
}

func (s *ReportService) Print(r *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n%s\n", sep)
	fmt.Printf("  INSTAGRAM SCRAPE SUMMARY — @%s\n", r.Profile)
	fmt.Printf("%s\n\n", sep)

	fmt.Printf("  Overview\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Posts processed   : %d\n", r.TotalPosts)
	fmt.Printf("  Comments captured : %d\n", r.TotalComments)
	fmt.Printf("  CSV rows written  : %d\n", r.TotalRows)
	fmt.Println()

	fmt.Printf("  Field Quality\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Posts with OCR text : %d\n", r.PostsWithOCRText)
	fmt.Printf("  OCR failures        : %d\n", r.OCRFailures)
	fmt.Printf("  Captions missing    : %d\n", r.CaptionsMissing)
	fmt.Println()

	fmt.Printf("  Most Active Commenters\n")
	fmt.Printf("  %s\n", thin)
	if len(r.CommentsByUser) == 0 {
		fmt.Printf("  No comments captured\n")
	} else {
		type userCount struct {
			user  string
			count int
		}
		var users []userCount
		for user, cnt := range r.CommentsByUser {
			users = append(users, userCount{user, cnt})
		}
		sort.Slice(users, func(i, j int) bool {
			if users[i].count != users[j].count {
				return users[i].count > users[j].count
			}
			return users[i].user < users[j].user
		})
		if len(users) > 5 {
			users = users[:5]
		}
		for _, uc := range users {
			bar := strings.Repeat("█", uc.count)
			fmt.Printf("  %-30s %s (%d)\n", truncate(uc.user, 28), bar, uc.count)
		}
	}

	fmt.Printf("\n%s\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
