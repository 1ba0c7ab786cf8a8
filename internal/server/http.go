package server

import (
	"encoding/json"
	stdhttp "net/http"
	"strconv"

	"github.com/gaoyong06/go-pkg/health"
	"github.com/gaoyong06/go-pkg/middleware/i18n"
	"github.com/google/wire"

	"rankup_tech/subscription-service/internal/auth"
	"rankup_tech/subscription-service/internal/conf"
	bizErrors "rankup_tech/subscription-service/internal/errors"
	"rankup_tech/subscription-service/internal/service"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(
	c *conf.Bootstrap,
	sub *service.SubscriptionService,
	inv *service.InvoiceService,
	val *service.ValidationService,
	logger log.Logger,
) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			// 添加 i18n 中间件
			i18n.Middleware(),
		),
		// 从网关注入的请求头恢复调用方身份
		http.Filter(auth.ContextFilter),
		http.ErrorEncoder(customErrorEncoder),
	}
	if c.Server.Http.Addr != "" {
		opts = append(opts, http.Address(c.Server.Http.Addr))
	}
	srv := http.NewServer(opts...)

	registerRoutes(srv, sub, inv, val)

	// 注册健康检查端点
	srv.Route("/").GET("/health", func(ctx http.Context) error {
		return ctx.Result(200, health.NewResponse("subscription-service"))
	})

	return srv
}

// registerRoutes 注册业务路由
func registerRoutes(srv *http.Server, sub *service.SubscriptionService, inv *service.InvoiceService, val *service.ValidationService) {
	r := srv.Route("/v1")

	// 套餐
	r.GET("/plans", func(ctx http.Context) error {
		reply, err := sub.ListPlans(ctx)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
	r.GET("/plans/{plan_id}", func(ctx http.Context) error {
		reply, err := sub.GetPlan(ctx, &service.GetPlanRequest{PlanID: ctx.Vars().Get("plan_id")})
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
	r.POST("/admin/plans", func(ctx http.Context) error {
		var req service.SavePlanRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := sub.CreatePlan(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
	r.PUT("/admin/plans/{plan_id}", func(ctx http.Context) error {
		var req service.SavePlanRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		req.PlanID = ctx.Vars().Get("plan_id")
		reply, err := sub.UpdatePlan(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 订阅生命周期
	r.POST("/subscriptions/order", func(ctx http.Context) error {
		var req service.CreateOrderRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := sub.CreateOrder(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
	r.POST("/subscriptions/activate", func(ctx http.Context) error {
		var req service.ActivateRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := sub.Activate(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
	r.POST("/subscriptions/{id}/renew", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		var req service.RenewRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		req.SubscriptionID = id
		reply, err := sub.Renew(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
	r.POST("/subscriptions/{id}/cancel", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		var req service.CancelRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		req.SubscriptionID = id
		reply, err := sub.Cancel(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 退款
	r.POST("/payments/refund", func(ctx http.Context) error {
		var req service.RefundRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := sub.Refund(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 发票
	r.POST("/invoices/generate", func(ctx http.Context) error {
		var req service.GenerateInvoiceRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := inv.Generate(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
	r.GET("/subscriptions/{id}/invoice", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		doc, err := inv.Download(ctx, id)
		if err != nil {
			return err
		}
		return ctx.Result(200, doc)
	})
	r.POST("/invoices/{id}/send", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		reply, err := inv.Send(ctx, &service.SendInvoiceRequest{InvoiceID: id})
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 订阅历史
	r.GET("/users/{user_id}/subscription-history", func(ctx http.Context) error {
		userID, err := pathID(ctx, "user_id")
		if err != nil {
			return err
		}
		page, _ := strconv.Atoi(ctx.Query().Get("page"))
		pageSize, _ := strconv.Atoi(ctx.Query().Get("page_size"))
		reply, err := sub.GetHistory(ctx, userID, page, pageSize)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	// 订阅校验与试用配额
	r.GET("/validate/subscription", func(ctx http.Context) error {
		userID, err := queryID(ctx, "user_id")
		if err != nil {
			return err
		}
		reply, err := val.Validate(ctx, userID, ctx.Query().Get("exam_category"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
	r.GET("/validate/active", func(ctx http.Context) error {
		userID, err := queryID(ctx, "user_id")
		if err != nil {
			return err
		}
		reply, err := val.IsActive(ctx, userID)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
	r.GET("/validate/demo", func(ctx http.Context) error {
		userID, err := queryID(ctx, "user_id")
		if err != nil {
			return err
		}
		reply, err := val.CheckDemoEligibility(ctx, userID, ctx.Query().Get("exam_category"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
	r.POST("/demo/access", func(ctx http.Context) error {
		var req service.LogDemoAccessRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := val.LogDemoAccess(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
}

func pathID(ctx http.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Vars().Get(name), 10, 64)
	if err != nil {
		return 0, kerrors.BadRequest("INVALID_ARGUMENT", name+" must be a positive integer")
	}
	return id, nil
}

func queryID(ctx http.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Query().Get(name), 10, 64)
	if err != nil {
		return 0, kerrors.BadRequest("INVALID_ARGUMENT", name+" must be a positive integer")
	}
	return id, nil
}

func customErrorEncoder(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	se := kerrors.FromError(err)
	status := stdhttp.StatusInternalServerError
	response := map[string]interface{}{
		"code":    status,
		"message": "internal server error",
	}

	if se != nil {
		status = mapErrorStatus(int(se.Code))
		response["code"] = se.Code
		response["reason"] = se.Reason
		response["message"] = se.Message
		if len(se.Metadata) > 0 {
			response["metadata"] = se.Metadata
		}
	} else if err != nil {
		response["message"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func mapErrorStatus(code int) int {
	if code >= 100 && code < 600 {
		return code
	}
	switch code {
	case bizErrors.ErrCodePlanNotFound,
		bizErrors.ErrCodeSubscriptionNotFound,
		bizErrors.ErrCodeTransactionNotFound,
		bizErrors.ErrCodeInvoiceNotFound:
		return stdhttp.StatusNotFound
	case bizErrors.ErrCodeAccessDenied:
		return stdhttp.StatusForbidden
	case bizErrors.ErrCodeInvalidStatus,
		bizErrors.ErrCodeOperationInProgress:
		return stdhttp.StatusConflict
	case bizErrors.ErrCodeVerificationFailed:
		return stdhttp.StatusBadRequest
	case bizErrors.ErrCodeGatewayUnavailable:
		return stdhttp.StatusServiceUnavailable
	}
	return stdhttp.StatusInternalServerError
}
