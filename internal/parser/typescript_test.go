package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codesift/codesift/internal/types"
)

func parseTS(t *testing.T, src string) *Result {
	t.Helper()
	p := NewTreeSitterParser()
	res, err := p.Parse(".ts", []byte(src), 0)
	require.NoError(t, err)
	return res
}

func TestParseTS_ExtendsAndImplementsBaseTypes(t *testing.T) {
	res := parseTS(t, `
class UserStore extends BaseStore implements Cache, Flushable {
}
`)
	_, d, ok := defByName(res, "UserStore", types.KindClass)
	require.True(t, ok)
	require.Equal(t, []string{"BaseStore", "Cache", "Flushable"}, d.BaseTypes)
}

func TestParseTS_ClassDecoratorNormalized(t *testing.T) {
	res := parseTS(t, `
@Injectable()
@Injectable({ scope: "root" })
class OrderService {
}
`)
	_, d, ok := defByName(res, "OrderService", types.KindClass)
	require.True(t, ok)
	require.Equal(t, []string{"injectable"}, d.Attributes)
}

func TestParseTS_InjectFieldTypeAndReceiver(t *testing.T) {
	res := parseTS(t, `
class OrderService {
  userService = inject(UserService);

  load() {
    this.userService.getUser();
  }
}
`)
	idx, _, ok := defByName(res, "load", types.KindMethod)
	require.True(t, ok)
	calls := res.CallSites[idx]
	require.Len(t, calls, 1)
	require.Equal(t, "getUser", calls[0].MethodName)
	require.Equal(t, "UserService", calls[0].ReceiverType)
}

func TestParseTS_ConstructorDIParameter(t *testing.T) {
	res := parseTS(t, `
class OrderService {
  constructor(private userService: UserService) {}

  process() {
    this.userService.getUser();
  }
}
`)
	idx, _, ok := defByName(res, "process", types.KindMethod)
	require.True(t, ok)
	calls := res.CallSites[idx]
	require.Len(t, calls, 1)
	require.Equal(t, "UserService", calls[0].ReceiverType)

	_, ctor, ok := defByName(res, "constructor", types.KindConstructor)
	require.True(t, ok)
	require.Equal(t, "OrderService", ctor.Parent)
}

func TestParseTS_InterfaceMembers(t *testing.T) {
	res := parseTS(t, `
interface UserRepo {
  name: string;
  getUser(id: number): User;
}
`)
	_, p, ok := defByName(res, "name", types.KindProperty)
	require.True(t, ok)
	require.Equal(t, "UserRepo", p.Parent)

	_, m, ok := defByName(res, "getUser", types.KindMethod)
	require.True(t, ok)
	require.Equal(t, "UserRepo", m.Parent)
}

func TestParseTS_EnumMembers(t *testing.T) {
	res := parseTS(t, `
enum Color {
  Red,
  Green = 2,
}
`)
	_, _, ok := defByName(res, "Color", types.KindEnum)
	require.True(t, ok)
	_, red, ok := defByName(res, "Red", types.KindEnumMember)
	require.True(t, ok)
	require.Equal(t, "Color", red.Parent)
	_, _, ok = defByName(res, "Green", types.KindEnumMember)
	require.True(t, ok)
}

func TestParseTS_ArrowFunctionConstIsFunction(t *testing.T) {
	res := parseTS(t, `
const reload = async () => {
  refresh();
};
`)
	idx, d, ok := defByName(res, "reload", types.KindFunction)
	require.True(t, ok)
	require.Contains(t, d.Modifiers, "const")
	calls := res.CallSites[idx]
	require.Len(t, calls, 1)
	require.Equal(t, "refresh", calls[0].MethodName)
}

func TestParseTS_TypeAliasAndVariable(t *testing.T) {
	res := parseTS(t, `
type UserID = string;
let retries = 3;
`)
	_, _, ok := defByName(res, "UserID", types.KindTypeAlias)
	require.True(t, ok)
	_, v, ok := defByName(res, "retries", types.KindVariable)
	require.True(t, ok)
	require.Contains(t, v.Modifiers, "let")
}

func TestParseTS_ChainedCallEmitsOutermostOnly(t *testing.T) {
	res := parseTS(t, `
class Query {
  builder = inject(QueryBuilder);

  run() {
    return this.builder.where("a").orderBy("b").toList();
  }
}
`)
	idx, _, ok := defByName(res, "run", types.KindMethod)
	require.True(t, ok)
	calls := res.CallSites[idx]
	require.Len(t, calls, 1)
	require.Equal(t, "toList", calls[0].MethodName)
}

func TestParseTS_ChainedCallWithNestedArgument(t *testing.T) {
	res := parseTS(t, `
class Query {
  run() {
    return this.log(compute());
  }
}
`)
	idx, _, ok := defByName(res, "run", types.KindMethod)
	require.True(t, ok)
	names := make(map[string]bool)
	for _, c := range res.CallSites[idx] {
		names[c.MethodName] = true
	}
	// log's argument list is still walked, so compute surfaces alongside it.
	require.Len(t, res.CallSites[idx], 2)
	require.True(t, names["log"])
	require.True(t, names["compute"])
}

func TestParseTS_NewExpressionCallSite(t *testing.T) {
	res := parseTS(t, `
class Boot {
  start() {
    const s = new Server();
  }
}
`)
	idx, _, ok := defByName(res, "start", types.KindMethod)
	require.True(t, ok)
	calls := res.CallSites[idx]
	require.Len(t, calls, 1)
	require.Equal(t, "Server", calls[0].MethodName)
	require.Equal(t, "Server", calls[0].ReceiverType)
}

func TestParseTS_BuiltinReceiverStillRecorded(t *testing.T) {
	// The parser records Promise.resolve() verbatim; suppression is the
	// resolver's job, not the parser's.
	res := parseTS(t, `
class Deferred {
  doWork() {
    Promise.resolve();
  }
}
`)
	idx, _, ok := defByName(res, "doWork", types.KindMethod)
	require.True(t, ok)
	calls := res.CallSites[idx]
	require.Len(t, calls, 1)
	require.Equal(t, "resolve", calls[0].MethodName)
	require.Equal(t, "Promise", calls[0].ReceiverType)
}

func TestParseTS_TSXParses(t *testing.T) {
	p := NewTreeSitterParser()
	res, err := p.Parse(".tsx", []byte(`
export function Banner() {
  return <div className="banner">hi</div>;
}
`), 0)
	require.NoError(t, err)
	_, d, ok := defByName(res, "Banner", types.KindFunction)
	require.True(t, ok)
	require.Equal(t, types.KindFunction, d.Kind)
}

func TestParseTS_SimpleMethodStatsInvariants(t *testing.T) {
	res := parseTS(t, `
class Echo {
  say(msg: string): string {
    return msg;
  }
}
`)
	idx, _, ok := defByName(res, "say", types.KindMethod)
	require.True(t, ok)
	stats := res.CodeStats[idx]
	require.Equal(t, 1, stats.CyclomaticComplexity)
	require.Zero(t, stats.CognitiveComplexity)
	require.Equal(t, 1, stats.ParamCount)
	require.Equal(t, len(res.CallSites[idx]), stats.CallCount)
}
