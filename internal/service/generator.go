package service

import (
	"github.com/pkg/errors"

	"github.com/randstring/randstring-go/internal/crypto"
	"github.com/randstring/randstring-go/internal/model"
)

// GeneratorService handles one-shot generation without session state.
type GeneratorService struct {
	picker crypto.IndexPicker
}

// NewGeneratorService creates a new GeneratorService drawing from picker.
// A nil picker uses math/rand.
func NewGeneratorService(picker crypto.IndexPicker) *GeneratorService {
	if picker == nil {
		picker = crypto.NewMathPicker()
	}
	return &GeneratorService{picker: picker}
}

// Generate produces a value for the given request. Unset class flags take the
// generator defaults. With every class disabled the response carries
// NoSelectionMessage and is not copyable.
func (s *GeneratorService) Generate(req model.GenerateRequest) (model.GenerateResponse, error) {
	length := req.Length
	if length == 0 {
		length = DefaultLength
	}
	if length < MinLength || length > MaxLength {
		return model.GenerateResponse{}, errors.Wrapf(ErrLengthOutOfRange, "got %d", length)
	}

	classes := crypto.NewClassSet()
	flags := map[crypto.CharacterClass]*bool{
		crypto.Uppercase: req.Uppercase,
		crypto.Lowercase: req.Lowercase,
		crypto.Numbers:   req.Numbers,
		crypto.Symbols:   req.Symbols,
	}
	defaults := crypto.NewClassSet(DefaultClasses()...)
	for class, flag := range flags {
		if boolOrDefault(flag, defaults.Contains(class)) {
			classes.Add(class)
		}
	}

	alphabet := crypto.BuildAlphabet(classes)
	if alphabet == "" {
		return model.GenerateResponse{Value: NoSelectionMessage}, nil
	}

	value := crypto.Sample(s.picker, alphabet, length)
	return model.GenerateResponse{
		Value:    value,
		Length:   len(value),
		Copyable: true,
	}, nil
}

// boolOrDefault returns the dereferenced pointer value, or the fallback if nil.
func boolOrDefault(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}
