// SPDX-License-Identifier: GPL-3.0-or-later
package domain

//go:generate mockgen -destination=mocks/classification.go -package=mocks . Classifier

type Label string

const (
	SystemGenerated = Label("system-generated")
	HumanGenerated  = Label("human-generated")
)

type Classification struct {
	Label            Label
	Confidence       int
	Reasoning        string
	SystemIndicators []string
	HumanIndicators  []string
}

type Classifier interface {
	Classify(from, subject, body string) (*Classification, error)
	TestConnection() (bool, error)
}
