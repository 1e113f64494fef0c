package runtime

import (
	"bytes"
	"sync"

	"escrow-sol/internal/consts"
	"escrow-sol/internal/escrow"
	"escrow-sol/internal/types"
	"escrow-sol/pkg/logger"

	"github.com/blocto/solana-go-sdk/common"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/pkg/errors"
)

// Program 链上程序入口
type Program interface {
	Process(programID types.Pubkey, accounts []*escrow.AccountInfo, data []byte) error
}

var (
	ErrProgramNotFound        = errors.New("program not found")
	ErrUnbalancedInstruction  = errors.New("sum of account balances before and after instruction do not match")
	ErrReadonlyModified       = errors.New("instruction modified a read-only account")
	ErrExternalDataModified   = errors.New("instruction modified data of an account it does not own")
	ErrExternalLamportSpend   = errors.New("instruction spent from the balance of an account it does not own")
	ErrPrivilegeEscalation    = errors.New("cross-program invocation with unauthorized signer or writable account")
	ErrMissingCalleeAccount   = errors.New("account required by the callee instruction is missing")
	ErrCallDepthExceeded      = errors.New("cross-program invocation call depth too deep")
	ErrUnsignedSignerAccount  = errors.New("account marked as signer did not sign the transaction")
	ErrExecutableDataModified = errors.New("instruction modified an executable account")
)

const maxInvokeDepth = 4

// Runtime 宿主运行时：
//   - 一条指令在一个执行单元内串行执行，全部成功才提交到账本，否则丢弃所有修改；
//   - 实现 escrow.Invoker，负责 CPI 的权限检查与 PDA 签名；
//   - 每一层调用结束后按账户所有权规则校验修改是否合法。
type Runtime struct {
	mu       sync.Mutex
	ledger   *Ledger
	rent     Rent
	programs map[types.Pubkey]Program
	frames   []*frame // 调用栈，栈顶为当前执行的程序
}

// frame 一层程序调用：程序 ID、本层可见的账户与对应快照
type frame struct {
	programID types.Pubkey
	accounts  []*escrow.AccountInfo
	pre       []accountSnapshot
}

var _ escrow.Invoker = (*Runtime)(nil)

func New(ledger *Ledger, rent Rent) *Runtime {
	return &Runtime{
		ledger:   ledger,
		rent:     rent,
		programs: make(map[types.Pubkey]Program),
	}
}

func (r *Runtime) Ledger() *Ledger {
	return r.ledger
}

func (r *Runtime) Rent() Rent {
	return r.rent
}

// RegisterProgram 注册程序，并在账本中写入对应的可执行账户
func (r *Runtime) RegisterProgram(programID types.Pubkey, program Program) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.programs[programID] = program
	r.ledger.Set(programID, &Account{
		Lamports:   1,
		Owner:      consts.BPFLoader,
		Executable: true,
	})
}

// ProcessInstruction 执行一条顶层指令。signers 为对交易签名的账户。
func (r *Runtime) ProcessInstruction(ix sdktypes.Instruction, signers ...types.Pubkey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	programID := types.PubkeyFromCommon(ix.ProgramID)
	program, ok := r.programs[programID]
	if !ok {
		return errors.Wrapf(ErrProgramNotFound, "program %s", programID)
	}

	signed := make(map[types.Pubkey]bool, len(signers))
	for _, s := range signers {
		signed[s] = true
	}

	infos, unique, err := r.loadAccounts(ix.Accounts, signed)
	if err != nil {
		return err
	}

	if err := r.execute(programID, program, infos, unique, ix.Data); err != nil {
		logger.Debugf("[runtime] instruction to %s failed: %v", programID, err)
		return err
	}

	// 执行成功才写回账本；失败时 infos 直接丢弃，相当于回滚
	for _, info := range unique {
		r.ledger.Set(info.Key, &Account{
			Lamports:   info.Lamports,
			Owner:      info.Owner,
			Data:       info.Data,
			Executable: info.Executable,
		})
	}
	return nil
}

// loadAccounts 把指令账户元信息转换为 AccountInfo；同一 pubkey 多次出现时共享同一个 AccountInfo
func (r *Runtime) loadAccounts(
	metas []sdktypes.AccountMeta,
	signed map[types.Pubkey]bool,
) ([]*escrow.AccountInfo, []*escrow.AccountInfo, error) {
	byKey := make(map[types.Pubkey]*escrow.AccountInfo, len(metas))
	infos := make([]*escrow.AccountInfo, 0, len(metas))
	unique := make([]*escrow.AccountInfo, 0, len(metas))

	for _, meta := range metas {
		key := types.PubkeyFromCommon(meta.PubKey)
		if meta.IsSigner && !signed[key] {
			return nil, nil, errors.Wrapf(ErrUnsignedSignerAccount, "account %s", key)
		}

		info, ok := byKey[key]
		if !ok {
			info = &escrow.AccountInfo{Key: key}
			if acc, found := r.ledger.Get(key); found {
				info.Lamports = acc.Lamports
				info.Owner = acc.Owner
				info.Data = acc.Data
				info.Executable = acc.Executable
			} else {
				info.Owner = consts.SystemProgram
			}
			byKey[key] = info
			unique = append(unique, info)
		}
		info.IsSigner = info.IsSigner || meta.IsSigner
		info.IsWritable = info.IsWritable || meta.IsWritable
		infos = append(infos, info)
	}
	return infos, unique, nil
}

// execute 运行一层程序调用，结束后校验账户修改是否合法
func (r *Runtime) execute(
	programID types.Pubkey,
	program Program,
	infos []*escrow.AccountInfo,
	unique []*escrow.AccountInfo,
	data []byte,
) error {
	if len(r.frames) >= maxInvokeDepth {
		return ErrCallDepthExceeded
	}

	f := &frame{programID: programID, accounts: unique, pre: snapshot(unique)}

	r.frames = append(r.frames, f)
	err := program.Process(programID, infos, data)
	r.frames = r.frames[:len(r.frames)-1]
	if err != nil {
		return err
	}

	return verifyChanges(programID, f.pre, unique)
}

// Invoke 以调用方已有的签名权限发起 CPI
func (r *Runtime) Invoke(ix sdktypes.Instruction, accounts []*escrow.AccountInfo) error {
	return r.InvokeSigned(ix, accounts, nil)
}

// InvokeSigned 发起 CPI，signerSeeds 中每组种子以调用方程序 ID 派生出一个 PDA 签名者
func (r *Runtime) InvokeSigned(ix sdktypes.Instruction, accounts []*escrow.AccountInfo, signerSeeds [][][]byte) error {
	if len(r.frames) == 0 {
		return errors.New("invoke called outside of program execution")
	}
	callerFrame := r.frames[len(r.frames)-1]
	caller := callerFrame.programID

	pdaSigners := make(map[types.Pubkey]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		pda, err := common.CreateProgramAddress(seeds, caller.ToCommon())
		if err != nil {
			return errors.Wrap(escrow.ErrInvalidSeeds, err.Error())
		}
		pdaSigners[types.PubkeyFromCommon(pda)] = true
	}

	calleeID := types.PubkeyFromCommon(ix.ProgramID)
	program, ok := r.programs[calleeID]
	if !ok {
		return errors.Wrapf(ErrProgramNotFound, "program %s", calleeID)
	}
	if findAccount(accounts, calleeID) == nil {
		return errors.Wrapf(ErrMissingCalleeAccount, "program account %s", calleeID)
	}

	// 调用方在 CPI 之前所做的修改先按调用方身份校验，校验通过后快照前移到当前状态
	if err := verifyChanges(caller, callerFrame.pre, callerFrame.accounts); err != nil {
		return err
	}
	callerFrame.pre = snapshot(callerFrame.accounts)

	// 为被调用方构造独立视图：签名/可写标志按被调用指令重新计算，余额与数据在返回后写回
	views := make(map[types.Pubkey]*escrow.AccountInfo, len(ix.Accounts))
	origins := make(map[types.Pubkey]*escrow.AccountInfo, len(ix.Accounts))
	calleeInfos := make([]*escrow.AccountInfo, 0, len(ix.Accounts))
	unique := make([]*escrow.AccountInfo, 0, len(ix.Accounts))

	for _, meta := range ix.Accounts {
		key := types.PubkeyFromCommon(meta.PubKey)
		origin := findAccount(accounts, key)
		if origin == nil {
			return errors.Wrapf(ErrMissingCalleeAccount, "account %s", key)
		}
		if meta.IsWritable && !origin.IsWritable {
			return errors.Wrapf(ErrPrivilegeEscalation, "writable %s", key)
		}
		if meta.IsSigner && !origin.IsSigner && !pdaSigners[key] {
			return errors.Wrapf(ErrPrivilegeEscalation, "signer %s", key)
		}

		view, ok := views[key]
		if !ok {
			cp := *origin
			cp.IsSigner = false
			cp.IsWritable = false
			view = &cp
			views[key] = view
			origins[key] = origin
			unique = append(unique, view)
		}
		view.IsSigner = view.IsSigner || meta.IsSigner
		view.IsWritable = view.IsWritable || meta.IsWritable
		calleeInfos = append(calleeInfos, view)
	}

	if err := r.execute(calleeID, program, calleeInfos, unique, ix.Data); err != nil {
		return err
	}

	for key, view := range views {
		origin := origins[key]
		origin.Lamports = view.Lamports
		origin.Owner = view.Owner
		origin.Data = view.Data
	}

	// 被调用方的修改已在其自身层级校验过，调用方的快照同步为调用后的状态
	for i := range callerFrame.pre {
		snap := &callerFrame.pre[i]
		if view, ok := views[snap.key]; ok {
			snap.lamports = view.Lamports
			snap.owner = view.Owner
			snap.data = append(snap.data[:0], view.Data...)
		}
	}
	return nil
}

type accountSnapshot struct {
	key        types.Pubkey
	lamports   uint64
	owner      types.Pubkey
	data       []byte
	writable   bool
	executable bool
}

func snapshot(infos []*escrow.AccountInfo) []accountSnapshot {
	snaps := make([]accountSnapshot, 0, len(infos))
	for _, info := range infos {
		snaps = append(snaps, accountSnapshot{
			key:        info.Key,
			lamports:   info.Lamports,
			owner:      info.Owner,
			data:       append([]byte(nil), info.Data...),
			writable:   info.IsWritable,
			executable: info.Executable,
		})
	}
	return snaps
}

// verifyChanges 校验规则：
//   - lamports 总量守恒；
//   - 只读账户不得修改；
//   - 只有账户 owner 可以改写数据或扣减 lamports（任何人都可以入账）；
//   - 可执行账户不得修改。
func verifyChanges(programID types.Pubkey, pre []accountSnapshot, post []*escrow.AccountInfo) error {
	var sumPre, sumPost uint64
	for i, before := range pre {
		after := post[i]
		sumPre += before.lamports
		sumPost += after.Lamports

		lamportsChanged := before.lamports != after.Lamports
		dataChanged := !bytes.Equal(before.data, after.Data)
		ownerChanged := before.owner != after.Owner
		if !lamportsChanged && !dataChanged && !ownerChanged {
			continue
		}

		if before.executable {
			return errors.Wrapf(ErrExecutableDataModified, "account %s", before.key)
		}
		if !before.writable {
			return errors.Wrapf(ErrReadonlyModified, "account %s", before.key)
		}
		if (dataChanged || ownerChanged) && before.owner != programID {
			return errors.Wrapf(ErrExternalDataModified, "account %s", before.key)
		}
		if after.Lamports < before.lamports && before.owner != programID {
			return errors.Wrapf(ErrExternalLamportSpend, "account %s", before.key)
		}
	}
	if sumPre != sumPost {
		return ErrUnbalancedInstruction
	}
	return nil
}

func findAccount(accounts []*escrow.AccountInfo, key types.Pubkey) *escrow.AccountInfo {
	for _, acc := range accounts {
		if acc.Key == key {
			return acc
		}
	}
	return nil
}
