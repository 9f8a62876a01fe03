package models

import "github.com/spf13/cast"

// Review is a customer's rating of the store.
type Review struct {
	CustomerName string `json:"customerName" validate:"notblank,personname,min=2,max=50"`
	Grade        string `json:"grade" validate:"notblank,grade"`
	Comment      string `json:"comment" validate:"notblank,min=10,max=500"`
	ReviewDate   string `json:"reviewDate"`
	Image        string `json:"image" validate:"notblank,imageref"`
}

// ReviewDateLayout is the layout of Review.ReviewDate.
const ReviewDateLayout = "2006-01-02"

// GradeValue returns the numeric grade, or -1 when it is not a number.
func (r Review) GradeValue() int {
	g, err := cast.ToIntE(r.Grade)
	if err != nil {
		return -1
	}
	return g
}
