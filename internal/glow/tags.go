package glow

import "github.com/danmuck/emberctl/internal/protocol/ber"

// Application tag numbers of the Glow DTD.
const (
	appRoot                    = 0
	appParameter               = 1
	appCommand                 = 2
	appNode                    = 3
	appElementCollection       = 4
	appStreamEntry             = 5
	appStreamCollection        = 6
	appStringIntegerPair       = 7
	appStringIntegerCollection = 8
	appQualifiedParameter      = 9
	appQualifiedNode           = 10
	appRootElementCollection   = 11
	appStreamDescription       = 12
	appMatrix                  = 13
	appTarget                  = 14
	appSource                  = 15
	appConnection              = 16
	appQualifiedMatrix         = 17
	appLabel                   = 18
	appFunction                = 19
	appQualifiedFunction       = 20
	appFunctionArgument        = 21
	appInvocation              = 22
	appInvocationResult        = 23
	appTemplate                = 24
	appQualifiedTemplate       = 25
)

// Field numbers shared by every element.
const (
	fieldNumber   = 0
	fieldContents = 1
	fieldChildren = 2
)

// Matrix element fields.
const (
	fieldMatrixTargets     = 3
	fieldMatrixSources     = 4
	fieldMatrixConnections = 5
)

// Node contents fields.
const (
	nodeIdentifier        = 0
	nodeDescription       = 1
	nodeIsRoot            = 2
	nodeIsOnline          = 3
	nodeSchemaIdentifiers = 4
	nodeTemplateReference = 5
)

// Parameter contents fields.
const (
	paramIdentifier        = 0
	paramDescription       = 1
	paramValue             = 2
	paramMinimum           = 3
	paramMaximum           = 4
	paramAccess            = 5
	paramFormat            = 6
	paramEnumeration       = 7
	paramFactor            = 8
	paramIsOnline          = 9
	paramFormula           = 10
	paramStep              = 11
	paramDefault           = 12
	paramType              = 13
	paramStreamIdentifier  = 14
	paramEnumMap           = 15
	paramStreamDescriptor  = 16
	paramSchemaIdentifiers = 17
	paramTemplateReference = 18
)

// Matrix contents fields.
const (
	matrixIdentifier               = 0
	matrixDescription              = 1
	matrixType                     = 2
	matrixMode                     = 3
	matrixTargetCount              = 4
	matrixSourceCount              = 5
	matrixMaximumTotalConnects     = 6
	matrixMaximumConnectsPerTarget = 7
	matrixParametersLocation       = 8
	matrixGainParameterNumber      = 9
	matrixLabels                   = 10
	matrixSchemaIdentifiers        = 11
	matrixTemplateReference        = 12
)

// Function contents fields.
const (
	functionIdentifier        = 0
	functionDescription       = 1
	functionArguments         = 2
	functionResult            = 3
	functionTemplateReference = 4
)

// Command, invocation and result fields.
const (
	commandNumber     = 0
	commandFieldFlags = 1
	commandInvocation = 2

	invocationID        = 0
	invocationArguments = 1

	resultID      = 0
	resultSuccess = 1
	resultValues  = 2
)

// Small record fields.
const (
	connectionTarget      = 0
	connectionSources     = 1
	connectionOperation   = 2
	connectionDisposition = 3

	labelBasePath    = 0
	labelDescription = 1

	signalNumber = 0

	argumentType = 0
	argumentName = 1

	templateElement     = 1
	templateDescription = 2

	streamFormat = 0
	streamOffset = 1

	pairKey   = 0
	pairValue = 1

	streamEntryIdentifier = 0
	streamEntryValue      = 1
)

func app(n int) byte { return ber.Application(n) }
func ctx(n int) byte { return ber.Context(n) }
