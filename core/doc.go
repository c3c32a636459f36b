// Package core provides the instructor client for structured extraction over
// OpenAI-compatible chat-completion transports.
//
// # Client and Transport
//
// [Client] wraps a [Transport]. The provider behind the transport is
// detected once from its base URL, and the extraction [Mode] is checked
// against the compatibility [Matrix] before the client is returned:
//
//	transport := openai.New(os.Getenv("OPENAI_API_KEY"))
//	client, err := core.NewClient(transport,
//	    core.WithMode(core.ModeTools),
//	    core.WithDebug(true),
//	)
//
// [Client] implements [Transport] itself. [Client.Chat] and
// [Client.StreamChat] forward raw requests after the per-request model
// check, returning the transport's own response types.
//
// # Extraction
//
// [Create] asks for a value of a Go type described by a
// [schema.ResponseModel]:
//
//	type User struct {
//	    Name string `json:"name"`
//	    Age  int    `json:"age"`
//	}
//
//	res, err := core.Create(ctx, client, core.CreateRequest[User]{
//	    ChatRequest: core.ChatRequest{
//	        Model:    "gpt-4o-mini",
//	        Messages: []core.Message{{Role: core.RoleUser, Content: "Jason is 30"}},
//	    },
//	    ResponseModel: schema.MustFor[User]("User"),
//	    MaxRetries:    2,
//	})
//
// Failed validation triggers a repair attempt that shows the model its
// previous answer and the validator's errors. The loop makes at most
// MaxRetries+1 calls and then returns the last error unchanged.
//
// [CreateStream] issues one streaming call and yields [Partial] values as
// properties complete:
//
//	ps, err := core.CreateStream(ctx, client, req)
//	for p := range ps.Ch {
//	    fmt.Printf("%+v\n", p.Value)
//	}
//	if err := <-ps.Err; err != nil {
//	    return err
//	}
//
// # Modes
//
//   - [ModeTools]: forced tool call with the schema as parameters
//   - [ModeFunctions]: forced legacy function call
//   - [ModeJSON]: json_object response format plus schema instructions
//   - [ModeMarkdownJSON]: a ```json fenced block requested in plain text
//   - [ModeJSONSchema]: json_schema response format
//
// # Error Handling
//
// Errors are classified with errors.Is and errors.As:
//   - [*ConfigurationError] wrapping [ErrUnsupportedMode], [ErrUnsupportedModel]
//     or [ErrNoTransport]: raised before any network call, never retried
//   - [*ParseError] (matches [ErrParse]): the payload was not structured data
//   - [*schema.ValidationError]: the payload failed the schema
//   - [*ProviderError] and the transport sentinels ([ErrRateLimited], ...)
//
// # Thread Safety
//
// [Client] is safe for concurrent use. Attempt state lives in each call.
package core
