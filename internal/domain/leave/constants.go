package leave

const (
	TypeAnnual   = "annual"
	TypeSick     = "sick"
	TypeUnpaid   = "unpaid"
	TypeParental = "parental"
	TypeOther    = "other"
)

var leaveTypes = []string{TypeAnnual, TypeSick, TypeUnpaid, TypeParental, TypeOther}

const (
	maxReason      = 1000
	maxNote        = 1000
	maxRequestDays = 365
)

const (
	opRequest = "leave.request"
	opDecide  = "leave.decide"
	opCancel  = "leave.cancel"
	opGet     = "leave.get"
	opList    = "leave.list"
	opBalance = "leave.balances"
)
