package identity

import (
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// The pool runs a single-round custom challenge: the merchant already proved
// control of the shop through the OAuth callback, so the challenge is a
// formality answered by the client with a fixed value.
const (
	customChallenge   = "CUSTOM_CHALLENGE"
	challengeMetadata = "TEMPORARY_CODE"
	challengeAnswer   = "ok"
)

var autoConfirmDomains = []string{
	"@myshopify.com",
}

// PreSignUp auto-confirms users whose email belongs to a shop domain.
func PreSignUp(event events.CognitoEventUserPoolsPreSignup) events.CognitoEventUserPoolsPreSignup {
	email := event.Request.UserAttributes["email"]
	if email == "" {
		return event
	}
	for _, domain := range autoConfirmDomains {
		if strings.HasSuffix(email, domain) {
			event.Response.AutoConfirmUser = true
		}
	}
	return event
}

// PreAuthentication lowercases the username and email so lookups are
// case-insensitive.
func PreAuthentication(event events.CognitoEventUserPoolsPreAuthentication) events.CognitoEventUserPoolsPreAuthentication {
	event.UserName = strings.ToLower(event.UserName)
	if email, ok := event.Request.UserAttributes["email"]; ok {
		event.Request.UserAttributes["email"] = strings.ToLower(email)
	}
	return event
}

// DefineAuthChallenge drives the one-round flow: issue the custom challenge
// on the first call, issue tokens once it has been answered, fail anything
// else.
func DefineAuthChallenge(event events.CognitoEventUserPoolsDefineAuthChallenge) events.CognitoEventUserPoolsDefineAuthChallenge {
	session := event.Request.Session
	switch {
	case len(session) == 0:
		event.Response.ChallengeName = customChallenge
		event.Response.IssueTokens = false
		event.Response.FailAuthentication = false
	case len(session) == 1 && session[0].ChallengeName == customChallenge && session[0].ChallengeResult:
		event.Response.IssueTokens = true
		event.Response.FailAuthentication = false
	default:
		event.Response.IssueTokens = false
		event.Response.FailAuthentication = true
	}
	return event
}

// CreateAuthChallenge attaches the fixed private answer.
func CreateAuthChallenge(event events.CognitoEventUserPoolsCreateAuthChallenge) events.CognitoEventUserPoolsCreateAuthChallenge {
	if event.Request.ChallengeName == customChallenge {
		event.Response.PublicChallengeParameters = map[string]string{}
		event.Response.PrivateChallengeParameters = map[string]string{"answer": challengeAnswer}
		event.Response.ChallengeMetadata = challengeMetadata
	}
	return event
}

// VerifyAuthChallenge compares the client's answer to the private parameter.
func VerifyAuthChallenge(event events.CognitoEventUserPoolsVerifyAuthChallenge) events.CognitoEventUserPoolsVerifyAuthChallenge {
	answer, _ := event.Request.ChallengeAnswer.(string)
	event.Response.AnswerCorrect = answer == event.Request.PrivateChallengeParameters["answer"]
	return event
}
