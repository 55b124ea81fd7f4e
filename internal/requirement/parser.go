package requirement

import "strings"

// TokenKind classifies a single trimmed line.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenIdentity
	TokenRemoteLink
	TokenTag
	TokenFeature
	TokenScenario
)

// String returns the token kind name.
func (k TokenKind) String() string {
	switch k {
	case TokenIdentity:
		return "identity"
	case TokenRemoteLink:
		return "remote-link"
	case TokenTag:
		return "tag"
	case TokenFeature:
		return "feature"
	case TokenScenario:
		return "scenario"
	default:
		return "text"
	}
}

// Token is a classified line.
type Token struct {
	Kind TokenKind
	// Text is the trimmed line.
	Text string
	// Payload is the part after the prefix or keyword: the remote id for
	// TokenRemoteLink, the trimmed title for TokenFeature.
	Payload string
}

// ClassifyLine trims line and decides which token it is. Identity and
// remote-link tags are checked before the generic tag rule.
func ClassifyLine(line string) Token {
	text := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(text, IdentityPrefix):
		return Token{Kind: TokenIdentity, Text: text}
	case strings.HasPrefix(text, RemoteLinkPrefix):
		return Token{Kind: TokenRemoteLink, Text: text, Payload: strings.TrimPrefix(text, RemoteLinkPrefix)}
	case strings.HasPrefix(text, TagPrefix):
		return Token{Kind: TokenTag, Text: text}
	case strings.HasPrefix(text, FeatureKeyword):
		return Token{Kind: TokenFeature, Text: text, Payload: strings.TrimSpace(strings.TrimPrefix(text, FeatureKeyword))}
	case strings.HasPrefix(text, ScenarioKeyword), strings.HasPrefix(text, ScenarioOutlineKeyword):
		return Token{Kind: TokenScenario, Text: text}
	default:
		return Token{Kind: TokenText, Text: text}
	}
}

// parseState is the position of the parser relative to the current block.
type parseState int

const (
	// stateIdle: no identity tag seen yet. Every token except an identity
	// tag is a no-op.
	stateIdle parseState = iota
	// stateDescription: inside a requirement, before its first scenario.
	stateDescription
	// stateScenario: inside a scenario block of the current requirement.
	stateScenario
)

type parser struct {
	state       parseState
	current     *Requirement
	description []string
	scenario    []string
	out         []Requirement
}

// Parse extracts requirements from text in a single forward pass. Every
// identity tag yields one Requirement, in document order, including repeated
// identity tags.
func Parse(text string) []Requirement {
	p := &parser{}
	for i, line := range strings.Split(text, "\n") {
		p.step(i+1, ClassifyLine(line))
	}
	p.finish()
	return p.out
}

func (p *parser) step(lineNo int, tok Token) {
	if tok.Kind == TokenIdentity {
		p.finish()
		p.current = &Requirement{PrimaryID: tok.Text, LineNumber: lineNo}
		p.state = stateDescription
		return
	}
	if p.state == stateIdle {
		return
	}

	switch tok.Kind {
	case TokenRemoteLink:
		p.current.RemoteID = tok.Payload
	case TokenTag:
		p.current.addTag(tok.Text)
	case TokenFeature:
		p.current.Title = tok.Payload
	case TokenScenario:
		p.flushScenario()
		p.scenario = []string{tok.Text}
		p.state = stateScenario
	case TokenText:
		if p.state == stateScenario {
			p.scenario = append(p.scenario, tok.Text)
		} else if tok.Text != "" {
			p.description = append(p.description, tok.Text)
		}
	}
}

func (p *parser) flushScenario() {
	if p.state == stateScenario && len(p.scenario) > 0 {
		p.current.Scenarios = append(p.current.Scenarios, strings.Join(p.scenario, "\n"))
	}
	p.scenario = nil
}

// finish closes the open requirement, if any, and resets to stateIdle.
func (p *parser) finish() {
	if p.current == nil {
		return
	}
	p.flushScenario()
	p.current.Description = strings.Join(p.description, "\n")
	p.out = append(p.out, *p.current)

	p.current = nil
	p.description = nil
	p.state = stateIdle
}
